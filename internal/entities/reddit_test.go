package entities_test

import (
	"strings"
	"testing"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/entities"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/stretchr/testify/require"
)

func postRecord() map[string]interface{} {
	return map[string]interface{}{
		"url":       "https://www.reddit.com/r/MechanicAdvice/comments/abc123/p0301_misfire/",
		"title":     "P0301 misfire after plug change",
		"author":    "u/wrench_guy",
		"subreddit": "r/MechanicAdvice",
		"equipment": map[string]interface{}{
			"vin":  "1hgcm82633a004352",
			"make": "Honda",
			"year": 2012,
		},
		"diagnostic_codes": []interface{}{
			map[string]interface{}{"code": "p0301", "is_primary_issue": true},
		},
		"repair_info": map[string]interface{}{"cost_mentioned": "350"},
		"metrics": map[string]interface{}{
			"upvotes":       50,
			"downvotes":     5,
			"comment_count": 25,
		},
		"timestamp": "2025-09-10T15:00:00Z",
		"source":    "reddit_mechanicadvice",
	}
}

func TestRedditPost_Valid(t *testing.T) {
	out, err := validate(t, entities.RedditDiagnosticPosts, schema.OpBase, postRecord())
	require.NoError(t, err)

	p := out.Value.(*entities.RedditPost)
	require.Equal(t, "wrench_guy", *p.Author)
	require.Equal(t, "MechanicAdvice", *p.Subreddit)
	require.Equal(t, "1HGCM82633A004352", *p.Equipment.VIN)
	require.Equal(t, "P0301", p.DiagnosticCodes[0].Code)
	require.Equal(t, int64(45), *p.Metrics.NetScore)
	require.Equal(t, "USD", *p.RepairInfo.Currency)
	require.Equal(t, fixedNow, p.ImportTimestamp)

	computed := entities.Computed(p, fixedNow)
	require.Equal(t, 6, computed["age_days"])
	require.Equal(t, true, computed["is_recent"])
	require.InDelta(t, 0.4, computed["engagement_score"], 1e-9)
	require.Equal(t, true, computed["has_diagnostic_codes"])
	require.Equal(t, "P0301", computed["primary_dtc_code"])
	require.Equal(t, 350.0, computed["estimated_repair_cost"])
}

func TestRedditURL_Rederived(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: "https://reddit.com/r/cars/comments/x1"},
		{url: "http://reddit.com/r/cars/comments/x1", want: "url: URL must be a valid Reddit URL"},
		{url: "https://reddit.com/r/cars", want: "url: URL does not appear to be a valid Reddit post URL"},
		{url: "https://example.com/r/cars/comments/x1", want: "url: string does not match pattern '^https?://(?:www\\.)?reddit\\.com/r/.+'"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			rec := postRecord()
			rec["url"] = tt.url
			if tt.want == "" {
				_, err := validate(t, entities.RedditDiagnosticPosts, schema.OpBase, rec)
				require.NoError(t, err)
				return
			}
			require.Equal(t, []string{tt.want}, violations(t, entities.RedditDiagnosticPosts, schema.OpBase, rec))
		})
	}
}

func TestRedditPost_Violations_Rederived(t *testing.T) {
	long := make([]interface{}, 51)
	for i := range long {
		long[i] = "noise"
	}

	tests := []struct {
		name   string
		mutate func(map[string]interface{})
		want   []string
	}{
		{
			name:   "short author",
			mutate: func(r map[string]interface{}) { r["author"] = "u/ab" },
			want:   []string{"author: Author username must be 3-20 characters"},
		},
		{
			name:   "author with spaces",
			mutate: func(r map[string]interface{}) { r["author"] = "wrench guy" },
			want:   []string{"author: Author username contains invalid characters"},
		},
		{
			name:   "long subreddit",
			mutate: func(r map[string]interface{}) { r["subreddit"] = "r/" + strings.Repeat("a", 22) },
			want:   []string{"subreddit: Subreddit name must be 2-21 characters"},
		},
		{
			name: "short vin",
			mutate: func(r map[string]interface{}) {
				r["equipment"] = map[string]interface{}{"vin": "1HGCM82633A00435"}
			},
			want: []string{"equipment.vin: VIN must be exactly 17 characters"},
		},
		{
			name: "vin with forbidden letter",
			mutate: func(r map[string]interface{}) {
				r["equipment"] = map[string]interface{}{"vin": "1HGCM82633A00435O"}
			},
			want: []string{"equipment.vin: VIN cannot contain letters I, O, or Q"},
		},
		{
			name: "year in the future",
			mutate: func(r map[string]interface{}) {
				r["equipment"] = map[string]interface{}{"year": 2027}
			},
			want: []string{"equipment: Year cannot be more than 1 year in the future: 2027"},
		},
		{
			name:   "too many symptoms",
			mutate: func(r map[string]interface{}) { r["symptoms_described"] = long },
			want:   []string{"symptoms_described: Maximum 50 items allowed in description lists"},
		},
		{
			name: "symptom too long",
			mutate: func(r map[string]interface{}) {
				r["symptoms_described"] = []interface{}{strings.Repeat("x", 201)}
			},
			want: []string{"symptoms_described.0: Individual description items cannot exceed 200 characters"},
		},
		{
			name:   "before reddit existed",
			mutate: func(r map[string]interface{}) { r["timestamp"] = "2004-01-01T00:00:00Z" },
			want:   []string{"Timestamp cannot be before Reddit was founded (2005-06-23)"},
		},
		{
			name:   "posted in the future",
			mutate: func(r map[string]interface{}) { r["timestamp"] = "2025-09-18T00:00:00Z" },
			want: []string{
				"Timestamp cannot be in the future",
				"Import timestamp must be after post timestamp",
			},
		},
		{
			name: "nothing meaningful",
			mutate: func(r map[string]interface{}) {
				r["title"] = "help"
				delete(r, "diagnostic_codes")
			},
			want: []string{"Post must have meaningful title, content, or diagnostic codes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postRecord()
			tt.mutate(rec)
			require.Equal(t, tt.want, violations(t, entities.RedditDiagnosticPosts, schema.OpBase, rec))
		})
	}
}
