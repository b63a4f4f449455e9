package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"invoicing-backend/internal/currency"
	"invoicing-backend/internal/model"
	"invoicing-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type CreateClientRequest struct {
	ClientName   string `json:"client_name" binding:"required"`
	CompanyGroup string `json:"company_group"`
	Country      string `json:"country"`
	State        string `json:"state"`
	Email        string `json:"email" binding:"omitempty,email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	GSTIN        string `json:"gstin"`
}

type UpdateClientRequest struct {
	ClientName   *string `json:"client_name"`
	CompanyGroup *string `json:"company_group"`
	Country      *string `json:"country"`
	State        *string `json:"state"`
	Email        *string `json:"email" binding:"omitempty,email"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
	GSTIN        *string `json:"gstin"`
}

// ClientCurrencyInfo tells the UI which currency to preselect for a client
// and which alternatives make sense for their country.
type ClientCurrencyInfo struct {
	DefaultCurrency     string   `json:"default_currency"`
	AvailableCurrencies []string `json:"available_currencies"`
	IndianClient        bool     `json:"indian_client"`
}

type ClientListResponse struct {
	Clients []model.Client `json:"clients"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	Limit   int            `json:"limit"`
}

type ClientService interface {
	Create(ctx context.Context, req CreateClientRequest, actorID *uuid.UUID) (*model.Client, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Client, error)
	List(ctx context.Context, companyGroup, search string, page, limit int) (*ClientListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateClientRequest, actorID *uuid.UUID) (*model.Client, error)
	Delete(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) error
	CurrencyInfo(ctx context.Context, id uuid.UUID) (*ClientCurrencyInfo, error)
}

type clientService struct {
	clients repository.ClientRepository
	audits  repository.AuditRepository
	log     *logrus.Logger
}

func NewClientService(clients repository.ClientRepository, audits repository.AuditRepository, log *logrus.Logger) ClientService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &clientService{clients: clients, audits: audits, log: log}
}

func (s *clientService) Create(ctx context.Context, req CreateClientRequest, actorID *uuid.UUID) (*model.Client, error) {
	if req.CompanyGroup != "" && !model.IsValidCompany(req.CompanyGroup) {
		return nil, fmt.Errorf("unknown company code %q", req.CompanyGroup)
	}

	client := &model.Client{
		ClientName:   strings.TrimSpace(req.ClientName),
		CompanyGroup: req.CompanyGroup,
		Country:      strings.TrimSpace(req.Country),
		State:        strings.TrimSpace(req.State),
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		GSTIN:        strings.ToUpper(strings.TrimSpace(req.GSTIN)),
	}
	if client.ClientName == "" {
		return nil, errors.New("client name is required")
	}

	if err := s.clients.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	s.audit(ctx, model.ActionCreateClient, client, actorID, nil)
	return client, nil
}

func (s *clientService) GetByID(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	client, err := s.clients.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrClientNotFound, id)
		}
		return nil, err
	}
	return client, nil
}

func (s *clientService) List(ctx context.Context, companyGroup, search string, page, limit int) (*ClientListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	clients, total, err := s.clients.List(ctx, companyGroup, search, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return &ClientListResponse{Clients: clients, Total: total, Page: page, Limit: limit}, nil
}

func (s *clientService) Update(ctx context.Context, id uuid.UUID, req UpdateClientRequest, actorID *uuid.UUID) (*model.Client, error) {
	client, err := s.clients.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrClientNotFound, id)
		}
		return nil, err
	}

	changed := map[string]string{}
	set := func(field string, dst *string, src *string) {
		if src != nil && *src != *dst {
			changed[field] = *src
			*dst = *src
		}
	}
	set("client_name", &client.ClientName, req.ClientName)
	set("country", &client.Country, req.Country)
	set("state", &client.State, req.State)
	set("email", &client.Email, req.Email)
	set("phone", &client.Phone, req.Phone)
	set("address", &client.Address, req.Address)
	set("gstin", &client.GSTIN, req.GSTIN)
	if req.CompanyGroup != nil {
		if *req.CompanyGroup != "" && !model.IsValidCompany(*req.CompanyGroup) {
			return nil, fmt.Errorf("unknown company code %q", *req.CompanyGroup)
		}
		set("company_group", &client.CompanyGroup, req.CompanyGroup)
	}
	if len(changed) == 0 {
		return client, nil
	}

	if err := s.clients.Update(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}

	s.audit(ctx, model.ActionUpdateClient, client, actorID, changed)
	return client, nil
}

func (s *clientService) Delete(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) error {
	client, err := s.clients.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrClientNotFound, id)
		}
		return err
	}

	if err := s.clients.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}

	s.audit(ctx, model.ActionDeleteClient, client, actorID, nil)
	return nil
}

// CurrencyInfo resolves the invoicing defaults for a client's country.
// Clients without a country are treated as Indian, so INR.
func (s *clientService) CurrencyInfo(ctx context.Context, id uuid.UUID) (*ClientCurrencyInfo, error) {
	client, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := currency.ClientProfile{Country: client.Country, State: client.State}
	return &ClientCurrencyInfo{
		DefaultCurrency:     currency.DefaultCurrencyForCountry(client.Country),
		AvailableCurrencies: currency.AvailableCurrenciesForCountry(client.Country),
		IndianClient:        currency.IsIndianClient(profile),
	}, nil
}

func (s *clientService) audit(ctx context.Context, action string, client *model.Client, actorID *uuid.UUID, changed map[string]string) {
	var details string
	if len(changed) > 0 {
		raw, _ := json.Marshal(changed)
		details = string(raw)
	}
	if err := s.audits.Log(ctx, &model.AuditLog{
		UserID:     actorID,
		Action:     action,
		EntityID:   client.ID.String(),
		EntityName: client.ClientName,
		Details:    details,
	}); err != nil {
		s.log.WithError(err).Warn("failed to write audit log")
	}
}
