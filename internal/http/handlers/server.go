package handlers

import (
	"go.uber.org/zap"

	"github.com/rogerio-castellano/inventory-orders/internal/auth"
	"github.com/rogerio-castellano/inventory-orders/internal/inventory"
	"github.com/rogerio-castellano/inventory-orders/internal/orders"
)

// Server holds the services the HTTP handlers delegate to.
type Server struct {
	ledger *inventory.Ledger
	orders *orders.Workflow
	auth   *auth.AdminAuthenticator
	logger *zap.Logger
}

func NewServer(ledger *inventory.Ledger, wf *orders.Workflow, authn *auth.AdminAuthenticator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		ledger: ledger,
		orders: wf,
		auth:   authn,
		logger: logger.Named("http"),
	}
}
