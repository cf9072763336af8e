package evaluation

import (
	"github.com/smallbiznis/beacon/internal/evaluation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("evaluation.service",
	fx.Provide(service.New),
)
