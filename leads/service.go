package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/lucaslcw/order-pipeline/common/api"
	"github.com/lucaslcw/order-pipeline/common/mask"
)

// service deduplicates customers into leads. It is best-effort and
// non-blocking with respect to the rest of the pipeline: the order worker
// runs the same find-or-create independently and the two may race for the
// same (email, cpf).
type service struct {
	leads  LeadFinder
	logger *zap.Logger
}

func NewService(leads LeadFinder, logger *zap.Logger) *service {
	return &service{
		leads:  leads,
		logger: logger,
	}
}

// ProcessRecord normalizes the customer identity and runs find-or-create.
// Malformed identities are rejected as validation errors with sensitive
// fields masked; those records are not worth retrying.
func (s *service) ProcessRecord(ctx context.Context, msg *api.InitializeOrder) (bool, error) {
	cpf, ok := api.NormalizeCPF(msg.CustomerData.CPF)
	if !ok {
		return false, api.Validationf("invalid cpf %s on order %s", mask.CPF(msg.CustomerData.CPF), msg.OrderID)
	}
	email, ok := api.NormalizeEmail(msg.CustomerData.Email)
	if !ok {
		return false, api.Validationf("invalid email on order %s", msg.OrderID)
	}

	customer := api.CustomerData{
		CPF:   cpf,
		Email: email,
		Name:  msg.CustomerData.Name,
	}

	lead, created, err := s.leads.FindOrCreate(ctx, customer)
	if err != nil {
		return false, err
	}

	if created {
		s.logger.Info("lead created",
			zap.String("lead_id", lead.ID),
			zap.String("order_id", msg.OrderID),
		)
	} else {
		s.logger.Debug("lead already known",
			zap.String("lead_id", lead.ID),
			zap.String("order_id", msg.OrderID),
		)
	}

	return created, nil
}
