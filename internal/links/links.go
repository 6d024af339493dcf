package links

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/almutairi-dev/tawseel-backend/pkg/config"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
)

// Action names one of the driver/customer-facing pages a link can open.
type Action string

const (
	ActionView     Action = "view"
	ActionConfirm  Action = "confirm"
	ActionComplete Action = "complete"
)

var validActions = []Action{ActionView, ActionConfirm, ActionComplete}

// String implements fmt.Stringer.
func (a Action) String() string {
	return string(a)
}

// IsValid reports whether the value is a known Action.
func (a Action) IsValid() bool {
	for _, candidate := range validActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAction converts raw input into an Action.
func ParseAction(value string) (Action, error) {
	for _, candidate := range validActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid link action %q", value)
}

// Path returns the public URL path an action is served under.
func (a Action) Path() string {
	return "/o/" + string(a)
}

// Generator builds and verifies capability links for orders. When a secret
// is configured, links carry an expiring HMAC signature; with no secret the
// bare order ID remains the only credential.
type Generator struct {
	baseURL string
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewGenerator builds a Generator from the link configuration.
func NewGenerator(cfg config.LinksConfig) (*Generator, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("links base url required")
	}
	g := &Generator{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		ttl:     cfg.TTL,
		now:     time.Now,
	}
	if cfg.Secret != "" {
		g.secret = []byte(cfg.Secret)
	}
	return g, nil
}

// Signed reports whether links carry an HMAC signature.
func (g *Generator) Signed() bool {
	return len(g.secret) > 0
}

// Build returns the full capability link for an order and action.
func (g *Generator) Build(orderID uuid.UUID, action Action) (string, error) {
	if orderID == uuid.Nil {
		return "", fmt.Errorf("order id required")
	}
	if !action.IsValid() {
		return "", fmt.Errorf("invalid link action %q", action)
	}

	q := url.Values{}
	q.Set("id", orderID.String())
	if g.Signed() {
		exp := g.now().Add(g.ttl).Unix()
		q.Set("exp", strconv.FormatInt(exp, 10))
		q.Set("sig", g.sign(orderID, action, exp))
	}
	return g.baseURL + action.Path() + "?" + q.Encode(), nil
}

// Verify checks the token carried by an incoming capability-link request.
// With no secret configured, possession of the order ID authorizes the
// action and every token is accepted.
func (g *Generator) Verify(orderID uuid.UUID, action Action, expires, signature string) error {
	if !g.Signed() {
		return nil
	}
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "malformed link token")
	}
	if g.now().Unix() > exp {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "link expired")
	}
	expected := g.sign(orderID, action, exp)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid link signature")
	}
	return nil
}

func (g *Generator) sign(orderID uuid.UUID, action Action, expiresUnix int64) string {
	mac := hmac.New(sha256.New, g.secret)
	fmt.Fprintf(mac, "%s|%s|%d", orderID, action, expiresUnix)
	return hex.EncodeToString(mac.Sum(nil))
}
