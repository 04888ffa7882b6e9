package postgres

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aretechltd/mospay/internal/core/domain"
)

func clientToDomain(m clientModel) *domain.Client {
	return &domain.Client{
		ID:              m.ID,
		AppID:           m.AppID,
		CompanyName:     m.CompanyName,
		ContactPerson:   m.ContactPerson,
		Email:           m.Email,
		Phone:           m.Phone,
		Address:         m.Address,
		APIUsername:     m.APIUsername,
		APIPasswordHash: m.APIPasswordHash,
		CallbackURL:     m.CallbackURL,
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func serviceToDomain(m serviceModel) *domain.Service {
	return &domain.Service{
		ID:          m.ID,
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Description: m.Description,
		ServiceURL:  m.ServiceURL,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func bindingToDomain(m bindingModel) *domain.ServiceBinding {
	return &domain.ServiceBinding{
		ID:          m.ID,
		ClientID:    m.ClientID,
		ServiceID:   m.ServiceID,
		AppID:       m.AppID,
		ServiceName: m.ServiceName,
		Route:       m.Route,
		EntityName:  m.EntityName,
		Country:     m.Country,
		ServiceURL:  m.ServiceURL,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func procedureToDomain(m procedureModel) *domain.ProcedureBinding {
	return &domain.ProcedureBinding{
		ID:        m.ID,
		BindingID: m.BindingID,
		Variant:   domain.ProcedureVariant(m.Variant),
		Kind:      domain.ProcedureKind(m.Kind),
		Handle:    m.Handle,
		Source:    m.Source,
		CreatedAt: m.CreatedAt,
	}
}

func transactionToDomain(m transactionModel) (*domain.Transaction, error) {
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return nil, fmt.Errorf("parse stored amount %q: %w", m.Amount, err)
	}

	txn := &domain.Transaction{
		ID:              m.ID,
		UniqueID:        m.UniqueID,
		ClientID:        m.ClientID,
		BindingID:       m.BindingID,
		Status:          domain.TransactionStatus(m.Status),
		Amount:          amount,
		MobileNumber:    m.MobileNumber,
		RequestPayload:  m.RequestPayload,
		ResponsePayload: m.ResponsePayload,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.DeviceID != nil {
		txn.DeviceID = *m.DeviceID
	}
	if m.FailureKind != nil {
		kind := domain.ErrorKind(*m.FailureKind)
		txn.FailureKind = &kind
	}
	return txn, nil
}
