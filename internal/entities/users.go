package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
)

const (
	emailPattern    = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	phonePattern    = `^\+?[\d\s\-\(\)]{10,20}$`
	timezonePattern = `^[A-Za-z]+/[A-Za-z_]+$`

	lockoutThreshold = 5
)

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// User is an account of the diagnostic platform.
type User struct {
	ID              string           `json:"id"`
	Email           string           `json:"email"`
	EmailVerified   bool             `json:"email_verified"`
	EmailVerifiedAt *time.Time       `json:"email_verified_at,omitempty"`
	PasswordHash    string           `json:"password_hash,omitempty"`
	UserType        string           `json:"user_type"`
	Profile         *UserProfile     `json:"profile,omitempty"`
	Auth            *UserAuth        `json:"auth,omitempty"`
	Preferences     *UserPreferences `json:"preferences,omitempty"`
	LastLoginAt     *time.Time       `json:"last_login_at,omitempty"`
	IsActive        bool             `json:"is_active"`
	Notes           *string          `json:"notes,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	DeletedAt       *time.Time       `json:"deleted_at,omitempty"`
}

type UserProfile struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Timezone  *string `json:"timezone,omitempty"`
	Country   *string `json:"country,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Bio       *string `json:"bio,omitempty"`
}

type UserAuth struct {
	MFAEnabled           bool       `json:"mfa_enabled"`
	FailedLoginAttempts  int        `json:"failed_login_attempts"`
	LockedUntil          *time.Time `json:"locked_until,omitempty"`
	LastPasswordChange   *time.Time `json:"last_password_change,omitempty"`
	SecurityQuestionHash *string    `json:"security_question_hash,omitempty"`
}

type UserPreferences struct {
	Language           string `json:"language"`
	DateFormat         string `json:"date_format"`
	TimeFormat         string `json:"time_format"`
	NotificationsEmail bool   `json:"notifications_email"`
	NotificationsSMS   bool   `json:"notifications_sms"`
	NotificationsPush  bool   `json:"notifications_push"`
	Theme              string `json:"theme"`
}

var userVariants = variants{
	base: userContract,
	create: func(base *schema.Contract) *schema.Contract {
		return createVariant(base, "id", []string{
			"email", "user_type", "profile", "preferences", "is_active",
		},
			schema.String("password").Require().Len(8, 128).Check(passwordStrength("Password")),
		)
	},
	update: func(base *schema.Contract) *schema.Contract {
		return updateVariant(base, []string{
			"email", "email_verified", "email_verified_at", "user_type", "profile", "auth",
			"preferences", "last_login_at", "is_active", "notes",
		})
	},
	response: func(base *schema.Contract) *schema.Contract {
		return base.Extend(base.Name+".response", schema.String("password_hash")).
			Rules(schema.Derivation("redact_password_hash", []string{"password_hash"}, func(_ schema.Env, r schema.Record) schema.Record {
				return r.Without("password_hash")
			}))
	},
}

func bcryptHash(v interface{}) error {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(v.(string), p) {
			return nil
		}
	}
	return errors.New("Password hash must be a valid bcrypt hash")
}

func phoneDigits(v interface{}) error {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(v.(string))
	if len(cleaned) < 10 {
		return errors.New("Phone number must have at least 10 digits")
	}
	return nil
}

func userContract() *schema.Contract {
	profile := schema.NewContract("profile",
		schema.String("first_name").MaxLen(100),
		schema.String("last_name").MaxLen(100),
		schema.String("phone").Match(phonePattern).Check(phoneDigits),
		schema.String("timezone").Match(timezonePattern),
		schema.String("country").Match(countryPattern),
		schema.String("avatar_url").MaxLen(500),
		schema.String("bio").MaxLen(1000),
	)

	auth := schema.NewContract("auth",
		schema.Boolean("mfa_enabled").Default(false),
		schema.Integer("failed_login_attempts").Between(0, 10).Default(int64(0)),
		schema.DateTime("locked_until"),
		schema.DateTime("last_password_change"),
		schema.String("security_question_hash").MaxLen(255),
	).Rules(
		schema.Predicate("lockout", []string{"failed_login_attempts"}, func(_ schema.Env, r schema.Record) error {
			attempts, _ := r.Int("failed_login_attempts")
			if attempts >= lockoutThreshold && !r.Has("locked_until") {
				return errors.New("locked_until must be set when failed_login_attempts >= 5")
			}
			return nil
		}),
	)

	preferences := schema.NewContract("preferences",
		schema.String("language").MaxLen(10).Default("en"),
		schema.String("date_format").MaxLen(20).Default("YYYY-MM-DD"),
		schema.String("time_format").MaxLen(10).Default("24h"),
		schema.Boolean("notifications_email").Default(true),
		schema.Boolean("notifications_sms").Default(false),
		schema.Boolean("notifications_push").Default(true),
		schema.String("theme").MaxLen(20).Default("light"),
	)

	fields := []*schema.Field{
		schema.UUID("id").Require(),
		schema.String("email").Require().Match(emailPattern).Lower(),
		schema.Boolean("email_verified").Default(false),
		schema.DateTime("email_verified_at"),
		schema.String("password_hash").Require().Len(60, 255).Check(bcryptHash),
		schema.Enum("user_type", "customer", "technician", "administrator", "shop_owner", "fleet_manager").Require(),
		schema.Object("profile", profile),
		schema.Object("auth", auth),
		schema.Object("preferences", preferences),
		schema.DateTime("last_login_at"),
		schema.Boolean("is_active").Default(true),
		schema.String("notes").MaxLen(1000),
	}
	fields = append(fields, timestamps()...)

	return schema.NewContract(string(Users), fields...).Rules(
		unlessPatch(schema.Predicate("email_verified_at_when_verified", []string{"email_verified"}, func(_ schema.Env, r schema.Record) error {
			if r.Bool("email_verified") && !r.Has("email_verified_at") {
				return errors.New("email_verified_at must be set when email_verified is true")
			}
			return nil
		})),
		notBefore("verified_after_created", "email_verified_at", "created_at", "email_verified_at cannot be before created_at"),
		notBefore("login_after_created", "last_login_at", "created_at", "last_login_at cannot be before created_at"),
		schema.Predicate("deleted_inactive", []string{"deleted_at", "is_active"}, func(_ schema.Env, r schema.Record) error {
			if r.Bool("is_active") {
				return errors.New("Deleted users cannot be active")
			}
			return nil
		}),
		updatedAfterCreated,
	).Into(func() interface{} { return &User{} })
}

// PasswordChangeContract validates a password change request. It is not an
// operation variant of users because it shares no fields with the entity.
func PasswordChangeContract() *schema.Contract {
	return schema.NewContract("users.password_change",
		schema.String("current_password").Require().Len(1, 128),
		schema.String("new_password").Require().Len(8, 128).Check(passwordStrength("New password")),
	).Rules(
		schema.Predicate("password_differs", []string{"current_password", "new_password"}, func(_ schema.Env, r schema.Record) error {
			if r.String("current_password") == r.String("new_password") {
				return errors.New("New password must be different from current password")
			}
			return nil
		}),
	)
}

// DisplayName prefers the profile name and falls back to the email local part.
func (u *User) DisplayName() string {
	if u.Profile != nil {
		var parts []string
		if u.Profile.FirstName != nil && *u.Profile.FirstName != "" {
			parts = append(parts, *u.Profile.FirstName)
		}
		if u.Profile.LastName != nil && *u.Profile.LastName != "" {
			parts = append(parts, *u.Profile.LastName)
		}
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// Computed implements Computer.
func (u *User) Computed(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"display_name":     u.DisplayName(),
		"account_age_days": ageDays(u.CreatedAt, now),
		"is_verified":      u.EmailVerified,
	}
}
