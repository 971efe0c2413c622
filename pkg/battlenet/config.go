package battlenet

import "time"

// Config holds Battle.net OAuth settings loaded from the environment.
type Config struct {
	ClientID     string        `env:"BNET_CLIENT_ID,required"`
	ClientSecret string        `env:"BNET_CLIENT_SECRET,required"`
	RedirectURL  string        `env:"BNET_REDIRECT_URL,required"`
	Region       string        `env:"BNET_REGION" envDefault:"eu"`
	Scopes       []string      `env:"BNET_SCOPES" envSeparator:" " envDefault:"openid wow.profile"`
	HTTPTimeout  time.Duration `env:"BNET_HTTP_TIMEOUT" envDefault:"5s"`
}
