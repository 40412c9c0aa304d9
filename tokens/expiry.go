package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-platform-client/model"
)

// expiryOf works out when raw expires: now+expiresIn when the server said so,
// else the JWT exp claim, else zero (unknown).
func expiryOf(raw string, expiresIn time.Duration, now time.Time) time.Time {
	if expiresIn > 0 {
		return now.Add(expiresIn)
	}
	exp, err := ExpiryFromJWT(raw)
	if err != nil {
		return time.Time{}
	}
	return exp
}

// ExpiryFromJWT reads the exp claim without verifying the signature. The
// client cannot verify platform tokens; the value is only used for display
// and early renewal decisions.
func ExpiryFromJWT(raw string) (time.Time, error) {
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, err
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, jwt.ErrTokenRequiredClaimMissing
	}
	return exp.Time, nil
}

// Info describes one held credential for status output.
type Info struct {
	Kind    model.TokenKind
	Active  bool
	Expiry  time.Time // zero when unknown
	Expired bool
}

// Infos lists the held credentials, platform first.
func (s *Store) Infos() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.nowFunc()
	var infos []Info
	if s.state.Platform != nil && s.state.Platform.AccessToken != "" {
		infos = append(infos, newInfo(model.TokenKindPlatform, s.state.Platform.Expiry, !s.inSystemLocked(), now))
	}
	if s.state.System != nil && s.state.System.AccessToken != "" {
		infos = append(infos, newInfo(model.TokenKindSystem, s.state.System.Expiry, s.inSystemLocked(), now))
	}
	return infos
}

func newInfo(kind model.TokenKind, expiry time.Time, active bool, now time.Time) Info {
	return Info{
		Kind:    kind,
		Active:  active,
		Expiry:  expiry,
		Expired: !expiry.IsZero() && now.After(expiry),
	}
}
