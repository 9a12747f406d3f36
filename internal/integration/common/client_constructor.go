package common

import (
	"github.com/futig/foodsafety-backend/internal/config"
	pkgHTTP "github.com/futig/foodsafety-backend/pkg/http"
	"go.uber.org/zap"
)

// NewBaseConnector builds the shared HTTP connector used by service integrations.
func NewBaseConnector(cfg config.HTTPClientConfig, logger *zap.Logger) *pkgHTTP.Connector {
	connCfg := &pkgHTTP.ConnectorConfig{
		Logger:  logger,
		BaseURL: cfg.Url,
	}

	return pkgHTTP.NewConnector(connCfg,
		pkgHTTP.WithTimeouts(pkgHTTP.Timeouts{
			Request:        cfg.RequestTimeout,
			Dial:           cfg.ConnTimeout,
			KeepAlive:      cfg.KeepAlive,
			ResponseHeader: cfg.ResponseHeaderTimeout,
			IdleConn:       cfg.IdleConnTimeout,
		}),
		pkgHTTP.WithRequestLogging(),
		pkgHTTP.WithAuthToken(cfg.Token),
	)
}
