package directory

import (
	"go.uber.org/fx"
	"proxy-checker/internal/interfaces"
)

var Module = fx.Options(
	fx.Provide(NewController),
	fx.Provide(func(c *Controller) interfaces.BatchChecker { return c }),
)
