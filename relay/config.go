package relay

import (
	"time"

	"github.com/adamwoolhether/pacer/throttle"
)

// Route exposes one upstream JSON endpoint at Path.
type Route struct {
	Name      string        `json:"name" mapstructure:"name" validate:"required"`
	Path      string        `json:"path" mapstructure:"path" validate:"required,startswith=/,ne=/routes,ne=/metrics,ne=/healthz"`
	Upstream  string        `json:"upstream" mapstructure:"upstream" validate:"required,url"`
	Period    time.Duration `json:"period" mapstructure:"period" validate:"gt=0"`
	Skippable bool          `json:"skippable" mapstructure:"skippable"`
	// Timeout bounds a whole relayed call, including the wait for the
	// route's turn. Zero leaves the call bounded only by the request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout" validate:"gte=0"`
}

// Config lists the routes of a Relay.
type Config struct {
	Routes []Route `json:"routes" mapstructure:"routes" validate:"required,min=1,unique=Path,unique=Name,dive"`
}

// Validate reports every invalid field, wrapped in [throttle.ErrConfiguration].
func (c Config) Validate() error {
	return throttle.Validate(c)
}
