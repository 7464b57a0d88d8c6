package database

import (
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/alfagnish/users-service/internal/config"
)

// Params are the values needed to open one PostgreSQL session.
type Params struct {
	User           string
	Password       string
	Name           string
	Host           string
	Port           string
	ConnectTimeout time.Duration
}

// ParamsFrom copies the connection fields out of cfg.
func ParamsFrom(cfg config.DBConfig) Params {
	return Params{
		User:           cfg.User,
		Password:       cfg.Password,
		Name:           cfg.Name,
		Host:           cfg.Host,
		Port:           cfg.Port,
		ConnectTimeout: cfg.ConnectTimeout,
	}
}

// EnvSource returns a function that resolves Params from the environment
// on every call, using base for any variable that is not set.
func EnvSource(base config.DBConfig) func() Params {
	return func() Params {
		return ParamsFrom(config.OverrideDBFromEnv(base))
	}
}

// ConnString renders p as a postgres:// URL. Credentials and the database
// name are escaped, so they may contain any character.
func (p Params) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   net.JoinHostPort(p.Host, p.Port),
		Path:   "/" + p.Name,
	}
	if p.ConnectTimeout > 0 {
		secs := int(p.ConnectTimeout.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		u.RawQuery = url.Values{"connect_timeout": {strconv.Itoa(secs)}}.Encode()
	}
	return u.String()
}

// Redacted is ConnString with the password masked, for logging.
func (p Params) Redacted() string {
	u, err := url.Parse(p.ConnString())
	if err != nil {
		return ""
	}
	return u.Redacted()
}
