package entities

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/shopspring/decimal"
)

const (
	redditURLPattern    = `^https?://(?:www\.)?reddit\.com/r/.+`
	redditSourcePattern = `^reddit_[a-z0-9_]+$`
)

var (
	vinChars       = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)
	redditFounding = time.Date(2005, 6, 23, 0, 0, 0, 0, time.UTC)
)

// RedditPost is a forum post or comment mined for diagnostic information.
type RedditPost struct {
	URL                string          `json:"url"`
	Title              *string         `json:"title,omitempty"`
	ContentText        *string         `json:"content_text,omitempty"`
	Author             *string         `json:"author,omitempty"`
	Subreddit          *string         `json:"subreddit,omitempty"`
	Equipment          *PostEquipment  `json:"equipment,omitempty"`
	DiagnosticCodes    []PostCode      `json:"diagnostic_codes,omitempty"`
	SymptomsDescribed  []string        `json:"symptoms_described,omitempty"`
	SolutionsMentioned []string        `json:"solutions_mentioned,omitempty"`
	RepairInfo         *PostRepair     `json:"repair_info,omitempty"`
	Timestamp          time.Time       `json:"timestamp"`
	SourceType         string          `json:"source_type"`
	PostStatus         string          `json:"post_status"`
	SolutionStatus     string          `json:"solution_status"`
	Cost               *float64        `json:"cost,omitempty"`
	Metrics            *PostMetrics    `json:"metrics,omitempty"`
	Extraction         *PostExtraction `json:"extraction,omitempty"`
	Source             string          `json:"source"`
	ImportTimestamp    time.Time       `json:"import_timestamp"`
}

type PostEquipment struct {
	VIN              *string `json:"vin,omitempty"`
	Make             *string `json:"make,omitempty"`
	Model            *string `json:"model,omitempty"`
	Year             *int64  `json:"year,omitempty"`
	Mileage          *int64  `json:"mileage,omitempty"`
	EngineSize       *string `json:"engine_size,omitempty"`
	TransmissionType *string `json:"transmission_type,omitempty"`
	FuelType         *string `json:"fuel_type,omitempty"`
}

type PostCode struct {
	Code                string  `json:"code"`
	MentionedContext    *string `json:"mentioned_context,omitempty"`
	IsPrimaryIssue      bool    `json:"is_primary_issue"`
	WasCleared          *bool   `json:"was_cleared,omitempty"`
	RecurrenceMentioned *bool   `json:"recurrence_mentioned,omitempty"`
}

type PostRepair struct {
	PartsReplaced     []string         `json:"parts_replaced,omitempty"`
	LaborPerformed    []string         `json:"labor_performed,omitempty"`
	CostMentioned     *decimal.Decimal `json:"cost_mentioned,omitempty"`
	Currency          *string          `json:"currency,omitempty"`
	ShopName          *string          `json:"shop_name,omitempty"`
	DIYRepair         *bool            `json:"diy_repair,omitempty"`
	WarrantyMentioned *bool            `json:"warranty_mentioned,omitempty"`
	SuccessReported   *bool            `json:"success_reported,omitempty"`
}

type PostMetrics struct {
	Upvotes      *int64 `json:"upvotes,omitempty"`
	Downvotes    *int64 `json:"downvotes,omitempty"`
	NetScore     *int64 `json:"net_score,omitempty"`
	CommentCount *int64 `json:"comment_count,omitempty"`
	AwardsCount  *int64 `json:"awards_count,omitempty"`
	Gilded       bool   `json:"gilded"`
}

type PostExtraction struct {
	ExtractionMethod *string  `json:"extraction_method,omitempty"`
	ConfidenceScore  *float64 `json:"confidence_score,omitempty"`
	KeywordsMatched  []string `json:"keywords_matched,omitempty"`
	TextQualityScore *float64 `json:"text_quality_score,omitempty"`
	LanguageDetected string   `json:"language_detected"`
	Sentiment        *string  `json:"sentiment,omitempty"`
}

var redditVariants = variants{
	base: redditContract,
	create: func(base *schema.Contract) *schema.Contract {
		return createVariant(base, "", []string{
			"url", "title", "content_text", "author", "subreddit", "equipment",
			"diagnostic_codes", "symptoms_described", "repair_info", "timestamp",
			"source_type", "source", "cost",
		})
	},
	update: func(base *schema.Contract) *schema.Contract {
		return updateVariant(base, []string{
			"title", "content_text", "equipment", "diagnostic_codes", "symptoms_described",
			"solutions_mentioned", "repair_info", "post_status", "solution_status", "cost",
			"metrics", "extraction",
		})
	},
}

func redditURL(v interface{}) error {
	url := v.(string)
	if !strings.HasPrefix(url, "https://reddit.com/") && !strings.HasPrefix(url, "https://www.reddit.com/") {
		return errors.New("URL must be a valid Reddit URL")
	}
	if !strings.Contains(url, "/r/") {
		return errors.New("URL must contain a subreddit (/r/)")
	}
	// scheme, "", host, "r", subreddit, "comments"
	if len(strings.Split(url, "/")) < 6 {
		return errors.New("URL does not appear to be a valid Reddit post URL")
	}
	return nil
}

// handle validates a prefixed Reddit name such as "u/name" or "r/name" once
// the prefix has been stripped by normalisation.
type handle struct {
	label string
	min   int
	max   int
}

func stripPrefix(prefix string) func(string) string {
	return func(s string) string {
		return strings.TrimPrefix(s, prefix)
	}
}

func (h handle) check(v interface{}) error {
	s := v.(string)
	for _, r := range s {
		if r != '_' && r != '-' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return fmt.Errorf("%s contains invalid characters", h.label)
		}
	}
	if n := len([]rune(s)); n < h.min || n > h.max {
		return fmt.Errorf("%s must be %d-%d characters", h.label, h.min, h.max)
	}
	return nil
}

var (
	authorHandle    = handle{label: "Author username", min: 3, max: 20}
	subredditHandle = handle{label: "Subreddit name", min: 2, max: 21}
)

func vinCheck(v interface{}) error {
	vin := v.(string)
	if len(vin) != 17 {
		return errors.New("VIN must be exactly 17 characters")
	}
	if strings.ContainsAny(vin, "IOQ") {
		return errors.New("VIN cannot contain letters I, O, or Q")
	}
	if !vinChars.MatchString(vin) {
		return fmt.Errorf("string does not match pattern '%s'", vinChars.String())
	}
	return nil
}

func boundedItems(name string, n, itemLen int, listMessage, itemMessage string) *schema.Field {
	return schema.List(name, schema.String("").Check(func(v interface{}) error {
		if len([]rune(v.(string))) > itemLen {
			return errors.New(itemMessage)
		}
		return nil
	})).Check(maxEntries(n, listMessage))
}

func redditContract() *schema.Contract {
	equipment := schema.NewContract("equipment",
		schema.String("vin").Upper().Check(vinCheck),
		schema.String("make").MaxLen(100),
		schema.String("model").MaxLen(100),
		schema.Integer("year").Between(minModelYear, maxModelYear),
		schema.Integer("mileage").Between(0, 2000000),
		schema.String("engine_size").MaxLen(50),
		schema.Enum("transmission_type", "manual", "automatic", "cvt"),
		schema.Enum("fuel_type", "gasoline", "diesel", "hybrid", "electric", "flex_fuel"),
	).Rules(
		schema.Predicate("year_not_future", []string{"year"}, func(env schema.Env, r schema.Record) error {
			year, _ := r.Int("year")
			if year > int64(env.Now.Year()+1) {
				return fmt.Errorf("Year cannot be more than 1 year in the future: %d", year)
			}
			return nil
		}),
	)

	code := schema.NewContract("diagnostic_code",
		schema.String("code").Require().Upper().Check(dtcCheck),
		schema.String("mentioned_context").MaxLen(500),
		schema.Boolean("is_primary_issue").Default(false),
		schema.Boolean("was_cleared"),
		schema.Boolean("recurrence_mentioned"),
	)

	repair := schema.NewContract("repair_info",
		boundedItems("parts_replaced", 20, 200, "Maximum 20 items allowed in repair lists", "Individual repair items cannot exceed 200 characters"),
		boundedItems("labor_performed", 20, 200, "Maximum 20 items allowed in repair lists", "Individual repair items cannot exceed 200 characters"),
		schema.Decimal("cost_mentioned").Between(0, 100000),
		schema.String("currency").Match(currencyPattern).Default("USD"),
		schema.String("shop_name").MaxLen(200),
		schema.Boolean("diy_repair"),
		schema.Boolean("warranty_mentioned"),
		schema.Boolean("success_reported"),
	).Rules(
		schema.Derivation("currency_with_cost", []string{"cost_mentioned"}, func(_ schema.Env, r schema.Record) schema.Record {
			cost, _ := r.Decimal("cost_mentioned")
			if cost.IsPositive() && !r.Has("currency") {
				return r.With("currency", "USD")
			}
			return nil
		}),
	)

	metrics := schema.NewContract("metrics",
		schema.Integer("upvotes").AtLeast(0),
		schema.Integer("downvotes").AtLeast(0),
		schema.Integer("net_score"),
		schema.Integer("comment_count").AtLeast(0),
		schema.Integer("awards_count").AtLeast(0),
		schema.Boolean("gilded").Default(false),
	).Rules(
		schema.Derivation("net_score", []string{"upvotes", "downvotes"}, func(_ schema.Env, r schema.Record) schema.Record {
			up, _ := r.Int("upvotes")
			down, _ := r.Int("downvotes")
			return r.With("net_score", up-down)
		}),
	)

	extraction := schema.NewContract("extraction",
		schema.String("extraction_method").MaxLen(100),
		schema.Number("confidence_score").Between(0, 1),
		schema.List("keywords_matched", schema.String("")),
		schema.Number("text_quality_score").Between(0, 1),
		schema.String("language_detected").MaxLen(10).Default("en"),
		schema.Enum("sentiment", "positive", "negative", "neutral", "mixed"),
	)

	return schema.NewContract(string(RedditDiagnosticPosts),
		schema.String("url").Require().Match(redditURLPattern).Check(redditURL),
		schema.String("title").MaxLen(300),
		schema.String("content_text").MaxLen(40000),
		schema.String("author").MaxLen(100).Normalize(stripPrefix("u/")).Check(authorHandle.check),
		schema.String("subreddit").MaxLen(100).Normalize(stripPrefix("r/")).Check(subredditHandle.check),
		schema.Object("equipment", equipment),
		schema.List("diagnostic_codes", schema.Object("", code)).
			Check(maxEntries(20, "Maximum 20 diagnostic codes allowed per post")),
		boundedItems("symptoms_described", 50, 200, "Maximum 50 items allowed in description lists", "Individual description items cannot exceed 200 characters"),
		boundedItems("solutions_mentioned", 50, 200, "Maximum 50 items allowed in description lists", "Individual description items cannot exceed 200 characters"),
		schema.Object("repair_info", repair),
		schema.DateTime("timestamp").Require(),
		schema.Enum("source_type", "post", "comment").Default("post"),
		schema.Enum("post_status", "active", "deleted", "removed", "archived").Default("active"),
		schema.Enum("solution_status", "solved", "unsolved", "partially_solved", "unknown").Default("unknown"),
		schema.Number("cost").Between(0, 100000),
		schema.Object("metrics", metrics),
		schema.Object("extraction", extraction),
		schema.String("source").Require().Match(redditSourcePattern),
		schema.DateTime("import_timestamp").DefaultNow(),
	).Rules(
		schema.Predicate("timestamp_range", []string{"timestamp"}, func(env schema.Env, r schema.Record) error {
			ts, _ := r.Time("timestamp")
			if ts.Before(redditFounding) {
				return errors.New("Timestamp cannot be before Reddit was founded (2005-06-23)")
			}
			if ts.After(env.Now) {
				return errors.New("Timestamp cannot be in the future")
			}
			return nil
		}),
		notBefore("imported_after_posted", "import_timestamp", "timestamp", "Import timestamp must be after post timestamp"),
		unlessPatch(schema.Predicate("meaningful_content", nil, func(_ schema.Env, r schema.Record) error {
			if len(strings.TrimSpace(r.String("title"))) > 5 ||
				len(strings.TrimSpace(r.String("content_text"))) > 10 ||
				len(r.List("diagnostic_codes")) > 0 {
				return nil
			}
			return errors.New("Post must have meaningful title, content, or diagnostic codes")
		})),
	).Into(func() interface{} { return &RedditPost{} })
}

// PrimaryDTC returns the code flagged as the primary issue, else the first
// code mentioned.
func (p *RedditPost) PrimaryDTC() *string {
	if len(p.DiagnosticCodes) == 0 {
		return nil
	}
	for _, c := range p.DiagnosticCodes {
		if c.IsPrimaryIssue {
			code := c.Code
			return &code
		}
	}
	code := p.DiagnosticCodes[0].Code
	return &code
}

// EngagementScore weighs upvotes, comments and awards into [0, 1].
func (p *RedditPost) EngagementScore() float64 {
	m := p.Metrics
	if m == nil {
		return 0
	}
	var score float64
	if m.Upvotes != nil && *m.Upvotes > 0 {
		score += math.Min(float64(*m.Upvotes)/100, 1) * 0.4
	}
	if m.CommentCount != nil && *m.CommentCount > 0 {
		score += math.Min(float64(*m.CommentCount)/50, 1) * 0.4
	}
	if m.AwardsCount != nil && *m.AwardsCount > 0 {
		score += math.Min(float64(*m.AwardsCount)/5, 1) * 0.2
	}
	return math.Min(score, 1)
}

// EstimatedRepairCost prefers the post-level cost over the repair details.
func (p *RedditPost) EstimatedRepairCost() *float64 {
	if p.Cost != nil && *p.Cost > 0 {
		c := *p.Cost
		return &c
	}
	if p.RepairInfo != nil && p.RepairInfo.CostMentioned != nil && p.RepairInfo.CostMentioned.IsPositive() {
		c := p.RepairInfo.CostMentioned.InexactFloat64()
		return &c
	}
	return nil
}

// ContentQuality scores text length, codes, vehicle details and solution
// status into [0, 1].
func (p *RedditPost) ContentQuality() float64 {
	var score float64
	if p.ContentText != nil {
		score += math.Min(float64(len(*p.ContentText))/500, 1) * 0.3
	}
	if len(p.DiagnosticCodes) > 0 {
		score += 0.3
	}
	if e := p.Equipment; e != nil {
		known := 0
		if e.Make != nil {
			known++
		}
		if e.Model != nil {
			known++
		}
		if e.Year != nil {
			known++
		}
		if e.Mileage != nil && *e.Mileage > 0 {
			known++
		}
		score += float64(known) / 4 * 0.2
	}
	if p.SolutionStatus == "solved" || p.SolutionStatus == "partially_solved" {
		score += 0.2
	}
	return math.Min(score, 1)
}

// Computed implements Computer.
func (p *RedditPost) Computed(now time.Time) map[string]interface{} {
	age := ageDays(p.Timestamp, now)
	out := map[string]interface{}{
		"age_days":              age,
		"is_recent":             age <= 30,
		"engagement_score":      p.EngagementScore(),
		"has_diagnostic_codes":  len(p.DiagnosticCodes) > 0,
		"primary_dtc_code":      nil,
		"estimated_repair_cost": nil,
		"content_quality_score": p.ContentQuality(),
	}
	if code := p.PrimaryDTC(); code != nil {
		out["primary_dtc_code"] = *code
	}
	if cost := p.EstimatedRepairCost(); cost != nil {
		out["estimated_repair_cost"] = *cost
	}
	return out
}
