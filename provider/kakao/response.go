// Package kakao parses the Kakao user-info document (GET /v2/user/me).
package kakao

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/lborres/boardauth/core"
)

// SchemaVersion identifies the payload layout this package understands.
const SchemaVersion = "kakao/v2"

// Response is the typed view of a Kakao user-info payload.
type Response struct {
	ID          int64          `json:"id"`
	ConnectedAt time.Time      `json:"connectedAt"`
	Properties  map[string]any `json:"properties,omitempty"`
	Account     Account        `json:"kakaoAccount"`
}

type Account struct {
	ProfileNicknameNeedsAgreement bool    `json:"profileNicknameNeedsAgreement"`
	Profile                       Profile `json:"profile"`
	HasEmail                      bool    `json:"hasEmail"`
	EmailNeedsAgreement           bool    `json:"emailNeedsAgreement"`
	IsEmailValid                  bool    `json:"isEmailValid"`
	IsEmailVerified               bool    `json:"isEmailVerified"`
	Email                         string  `json:"email"`
}

type Profile struct {
	Nickname string `json:"nickname"`
}

var _ core.ProviderProfile = (*Response)(nil)

func (r *Response) Email() string    { return r.Account.Email }
func (r *Response) Nickname() string { return r.Account.Profile.Nickname }

// ProviderID returns the decimal form of the Kakao user id.
func (r *Response) ProviderID() string {
	return strconv.FormatInt(r.ID, 10)
}

// Parse builds a Response from the decoded attribute map.
//
// Only structure is checked. Consent flags and contact fields are taken as
// given and never fail the parse.
func Parse(attrs map[string]any) (*Response, error) {
	if attrs == nil {
		return nil, malformed("payload is empty")
	}

	id, err := parseID(attrs["id"])
	if err != nil {
		return nil, err
	}

	connectedAt, err := parseInstant(attrs["connected_at"])
	if err != nil {
		return nil, err
	}

	account, ok := attrs["kakao_account"].(map[string]any)
	if !ok {
		return nil, malformed("kakao_account is missing or not an object")
	}
	profile, ok := account["profile"].(map[string]any)
	if !ok {
		return nil, malformed("kakao_account.profile is missing or not an object")
	}

	var properties map[string]any
	if p, ok := attrs["properties"].(map[string]any); ok {
		properties = p
	}

	return &Response{
		ID:          id,
		ConnectedAt: connectedAt,
		Properties:  properties,
		Account: Account{
			ProfileNicknameNeedsAgreement: flag(account["profile_nickname_needs_agreement"]),
			Profile: Profile{
				Nickname: str(profile["nickname"]),
			},
			HasEmail:            flag(account["has_email"]),
			EmailNeedsAgreement: flag(account["email_needs_agreement"]),
			IsEmailValid:        flag(account["is_email_valid"]),
			IsEmailVerified:     flag(account["is_email_verified"]),
			Email:               str(account["email"]),
		},
	}, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: kakao: %s", core.ErrMalformedProviderPayload, fmt.Sprintf(format, args...))
}

func parseID(v any) (int64, error) {
	switch id := v.(type) {
	case nil:
		return 0, malformed("id is missing")
	case json.Number:
		n, err := strconv.ParseInt(id.String(), 10, 64)
		if err != nil {
			return 0, malformed("id %q is not an integer", id.String())
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return 0, malformed("id %q is not an integer", id)
		}
		return n, nil
	case float64:
		// 2^63 itself is not representable as int64.
		if id != math.Trunc(id) || id < math.MinInt64 || id >= math.MaxInt64 {
			return 0, malformed("id %v is not an integer", id)
		}
		return int64(id), nil
	case float32:
		return parseID(float64(id))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, malformed("id %d overflows", u)
		}
		return int64(u), nil
	}
	return 0, malformed("id has unsupported type %T", v)
}

func parseInstant(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, malformed("connected_at is missing")
	}
	// RFC3339Nano parsing also accepts values without fractional seconds.
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, malformed("connected_at %q is not an ISO-8601 instant", s)
	}
	return t.UTC(), nil
}

// flag is true only when the value's string form is "true", ignoring case.
func flag(v any) bool {
	if v == nil {
		return false
	}
	return strings.EqualFold(fmt.Sprint(v), "true")
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
