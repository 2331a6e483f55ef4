package embeddedmqtt

import (
	"errors"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
)

var errNoAuth = errors.New("embedded mqtt requires allow_anonymous or username")

// authHook picks the access policy for cfg. Anonymous brokers accept
// everyone; otherwise the one configured account may only touch the nav
// topic tree.
func authHook(cfg Config) (mqtt.Hook, any, error) {
	switch {
	case cfg.AllowAnonymous:
		return new(auth.AllowHook), nil, nil
	case cfg.Username != "":
		return new(auth.Hook), &auth.Options{Ledger: navLedger(cfg)}, nil
	default:
		return nil, nil, errNoAuth
	}
}

func navLedger(cfg Config) *auth.Ledger {
	user := auth.RString(cfg.Username)
	return &auth.Ledger{
		Auth: auth.AuthRules{{Username: user, Password: auth.RString(cfg.Password), Allow: true}},
		ACL: auth.ACLRules{{
			Username: user,
			Filters: auth.Filters{
				auth.RString(cfg.TopicBase + "/#"): auth.ReadWrite,
				"#":                                auth.Deny,
			},
		}},
	}
}
