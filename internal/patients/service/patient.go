package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"intake/internal/patients/events"
	patienterrors "intake/internal/patients/errors"
	"intake/internal/patients/repository"
	"intake/internal/patients/validator"
	"intake/internal/postalcode"
	"intake/pkg/config"
	"intake/pkg/cpf"
	apperrors "intake/pkg/errors"
	"intake/pkg/model"
	"intake/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	msgDuplicateCPF = "Patient with this CPF already exists"

	minSearchLength = 2
)

type PatientService interface {
	Create(ctx context.Context, p *model.Patient) error
	GetByID(ctx context.Context, id string) (*model.Patient, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Patient, int64, error)
	Search(ctx context.Context, query string) ([]*model.Patient, error)
	Update(ctx context.Context, id string, updates *model.PatientUpdate) (*model.Patient, error)
	Delete(ctx context.Context, id string) error
	Defaults() *model.Patient
	ValidateCPF(raw string) CPFCheck
	CompleteAddress(ctx context.Context, id string) (bool, error)
}

// CPFCheck is the result of a standalone CPF check.
type CPFCheck struct {
	CPF       string `json:"cpf"`
	Valid     bool   `json:"valid"`
	Formatted string `json:"formatted,omitempty"`
	Message   string `json:"message,omitempty"`
}

type patientService struct {
	repo      repository.PatientRepository
	validator *validator.PatientValidator
	postal    postalcode.Resolver
	publisher events.Publisher
	cfg       *config.Config
	now       func() time.Time
}

// NewPatientService wires the patient use cases. postal may be nil when
// address lookups are disabled.
func NewPatientService(
	repo repository.PatientRepository,
	validator *validator.PatientValidator,
	postal postalcode.Resolver,
	publisher events.Publisher,
	cfg *config.Config,
) PatientService {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &patientService{
		repo:      repo,
		validator: validator,
		postal:    postal,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *patientService) Create(ctx context.Context, p *model.Patient) error {
	p.ID = ""
	s.sanitize(p)
	s.applyDefaults(p)
	s.autofillAddress(ctx, p)

	if err := s.validator.Validate(p); err != nil {
		s.cfg.Log.Warn("Patient validation failed",
			"cpf", cpf.Mask(p.CPF),
			"error", err,
		)
		return validationError(err)
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := s.repo.FindByCPF(sessCtx, p.CPF)
		if err == nil && existing != nil {
			return apperrors.Conflict(msgDuplicateCPF)
		}
		if err != nil && !errors.Is(err, patienterrors.ErrNotFound) {
			return apperrors.Internal("Failed to check for existing patient", err)
		}

		if err := s.repo.Create(sessCtx, p); err != nil {
			return toAppError(err, "", "Failed to create patient")
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create patient",
			"cpf", cpf.Mask(p.CPF),
			"error", err,
		)
		return err
	}

	s.cfg.Log.Info("Patient created successfully",
		"id", p.ID,
		"cpf", cpf.Mask(p.CPF),
		"address_complete", p.Address.IsComplete(),
	)
	s.publish(ctx, events.TypeCreated, p)
	return nil
}

func (s *patientService) GetByID(ctx context.Context, id string) (*model.Patient, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Patient ID cannot be empty")
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		appErr := toAppError(err, id, "Failed to retrieve patient")
		if apperrors.AsAppError(appErr).Code == apperrors.CodeInternal {
			s.cfg.Log.Error("Failed to get patient by ID",
				"id", id,
				"error", err,
			)
		}
		return nil, appErr
	}

	return p, nil
}

func (s *patientService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Patient, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	sharedCtx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	var count int64
	var patients []*model.Patient
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(sharedCtx)
		if err != nil {
			s.cfg.Log.Error("Failed to count patients", "error", err)
			errCount = apperrors.Internal("Failed to count patients", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		patients, err = s.repo.FindAll(sharedCtx, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to get all patients",
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve patients", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return patients, count, nil
}

func (s *patientService) Search(ctx context.Context, query string) ([]*model.Patient, error) {
	query = sanitizer.TrimAndNormalize(query)
	if utf8.RuneCountInString(query) < minSearchLength {
		return nil, apperrors.InvalidInput("Search query must have at least 2 characters")
	}

	patients, err := s.repo.Search(ctx, query, config.DefaultPaginationLimit)
	if err != nil {
		s.cfg.Log.Error("Failed to search patients", "error", err)
		return nil, apperrors.Internal("Failed to search patients", err)
	}

	s.cfg.Log.Debug("Patients search completed", "results_count", len(patients))
	return patients, nil
}

func (s *patientService) Update(ctx context.Context, id string, updates *model.PatientUpdate) (*model.Patient, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Patient ID cannot be empty")
	}
	if updates == nil || updates.IsEmpty() {
		return nil, apperrors.InvalidInput("No fields to update")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, toAppError(err, id, "Failed to check patient existence")
	}

	merged := *existing
	updates.Apply(&merged)
	merged.ID = existing.ID
	merged.CreatedAt = existing.CreatedAt
	s.sanitize(&merged)
	if updates.Address != nil {
		s.autofillAddress(ctx, &merged)
	}

	if err := s.validator.Validate(&merged); err != nil {
		s.cfg.Log.Warn("Patient validation failed",
			"id", id,
			"error", err,
		)
		return nil, validationError(err)
	}

	cpfChanged := merged.CPF != existing.CPF
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if cpfChanged {
			other, err := s.repo.FindByCPF(sessCtx, merged.CPF)
			if err == nil && other != nil && other.ID != id {
				return apperrors.Conflict(msgDuplicateCPF)
			}
			if err != nil && !errors.Is(err, patienterrors.ErrNotFound) {
				return apperrors.Internal("Failed to check for duplicate CPF", err)
			}
		}

		if _, err := s.repo.Update(sessCtx, id, &merged); err != nil {
			s.cfg.Log.Error("Failed to update patient",
				"id", id,
				"error", err,
			)
			return toAppError(err, id, "Failed to update patient")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Patient updated successfully", "id", id, "cpf_changed", cpfChanged)
	s.publish(ctx, events.TypeUpdated, &merged)
	return &merged, nil
}

func (s *patientService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Patient ID cannot be empty")
	}

	var deleted *model.Patient
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		p, err := s.repo.FindByID(sessCtx, id)
		if err != nil {
			return toAppError(err, id, "Failed to check patient existence")
		}
		if err := s.repo.Delete(sessCtx, id); err != nil {
			s.cfg.Log.Error("Failed to delete patient",
				"id", id,
				"error", err,
			)
			return toAppError(err, id, "Failed to delete patient")
		}
		deleted = p
		return nil
	})
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Patient deleted successfully", "id", id)
	s.publish(ctx, events.TypeDeleted, deleted)
	return nil
}

// Defaults returns the blank intake form state.
func (s *patientService) Defaults() *model.Patient {
	return &model.Patient{
		Gender:          model.GenderMale,
		IsNewbornInPlan: false,
		Attachments:     []model.Attachment{},
	}
}

func (s *patientService) ValidateCPF(raw string) CPFCheck {
	check := CPFCheck{CPF: cpf.Digits(raw)}
	if err := s.validator.ValidateCPF(raw); err != nil {
		check.Message = validator.MsgInvalidCPF
		return check
	}
	check.Valid = true
	check.Formatted = cpf.Format(raw)
	return check
}

// CompleteAddress resolves the stored CEP and fills the empty address fields.
// It reports whether anything was written.
func (s *patientService) CompleteAddress(ctx context.Context, id string) (bool, error) {
	if s.postal == nil {
		return false, apperrors.Unavailable("Postal code lookup")
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return false, toAppError(err, id, "Failed to retrieve patient")
	}
	if p.Address.CEP == "" || p.Address.IsComplete() {
		return false, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.PostalLookupTimeout)
	defer cancel()

	resolved, err := s.postal.Lookup(lookupCtx, p.Address.CEP)
	if err != nil {
		return false, postalcode.ToAppError(err)
	}

	changed, err := s.repo.FillAddress(ctx, id, resolved)
	if err != nil {
		return false, toAppError(err, id, "Failed to complete patient address")
	}

	s.cfg.Log.Info("Patient address completed", "id", id, "cep", p.Address.CEP, "changed", changed)
	return changed, nil
}

// autofillAddress fills empty address fields from the CEP. Lookup failures
// never block the caller.
func (s *patientService) autofillAddress(ctx context.Context, p *model.Patient) {
	if s.postal == nil || p.Address.CEP == "" {
		return
	}
	if p.Address.Street != "" && p.Address.City != "" {
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.PostalLookupTimeout)
	defer cancel()

	resolved, err := s.postal.Lookup(lookupCtx, p.Address.CEP)
	if err != nil {
		s.cfg.Log.Warn("Address auto-completion skipped",
			"cep", p.Address.CEP,
			"error", err,
		)
		return
	}
	p.Address.Fill(resolved)
}

func (s *patientService) publish(ctx context.Context, eventType string, p *model.Patient) {
	if err := s.publisher.Publish(ctx, events.NewPatientEvent(eventType, p, s.now())); err != nil {
		s.cfg.Log.Error("Failed to publish patient event",
			"type", eventType,
			"id", p.ID,
			"error", err,
		)
	}
}

func (s *patientService) sanitize(p *model.Patient) {
	p.Name = sanitizer.NormalizeName(p.Name)
	p.NameKey = sanitizer.NormalizeNameForComparison(p.Name)
	p.SocialName = sanitizer.NormalizeName(p.SocialName)
	p.CPF = sanitizer.NormalizeCPF(p.CPF)
	p.RG = sanitizer.NormalizeDocument(p.RG)
	p.OtherDocType = sanitizer.NormalizeEnum(p.OtherDocType)
	p.OtherDocNumber = sanitizer.NormalizeDocument(p.OtherDocNumber)
	p.Gender = sanitizer.NormalizeEnum(p.Gender)
	p.Ethnicity = sanitizer.NormalizeName(p.Ethnicity)
	p.Race = sanitizer.NormalizeEnum(p.Race)
	p.BirthPlace = sanitizer.NormalizeName(p.BirthPlace)
	p.Nationality = sanitizer.NormalizeName(p.Nationality)
	p.Profession = sanitizer.NormalizeName(p.Profession)
	p.MaritalStatus = sanitizer.NormalizeEnum(p.MaritalStatus)
	p.MotherName = sanitizer.NormalizeName(p.MotherName)
	p.MotherProfession = sanitizer.NormalizeName(p.MotherProfession)
	p.FatherName = sanitizer.NormalizeName(p.FatherName)
	p.FatherProfession = sanitizer.NormalizeName(p.FatherProfession)
	p.GuardianName = sanitizer.NormalizeName(p.GuardianName)
	p.GuardianCPF = sanitizer.NormalizeCPF(p.GuardianCPF)
	p.SpouseName = sanitizer.NormalizeName(p.SpouseName)
	p.LegacyCode = strings.TrimSpace(p.LegacyCode)
	p.Observations = sanitizer.NormalizeText(p.Observations)

	if p.Photo != nil {
		photo := sanitizer.NormalizeAttachment(*p.Photo)
		p.Photo = &photo
	}
	p.Attachments = sanitizer.NormalizeAttachments(p.Attachments)

	p.Contact.Email = sanitizer.NormalizeEmail(p.Contact.Email)
	p.Contact.Cellphone = s.normalizePhone(p.Contact.Cellphone)
	p.Contact.Phone1 = s.normalizePhone(p.Contact.Phone1)
	p.Contact.Phone2 = s.normalizePhone(p.Contact.Phone2)

	p.Address.CEP = sanitizer.NormalizeCEP(p.Address.CEP)
	p.Address.Street = sanitizer.NormalizeName(p.Address.Street)
	p.Address.Number = sanitizer.NormalizeName(p.Address.Number)
	p.Address.Complement = sanitizer.NormalizeName(p.Address.Complement)
	p.Address.Neighborhood = sanitizer.NormalizeName(p.Address.Neighborhood)
	p.Address.City = sanitizer.NormalizeName(p.Address.City)
	p.Address.State = sanitizer.NormalizeState(p.Address.State)
	p.Address.Reference = sanitizer.NormalizeName(p.Address.Reference)
}

// normalizePhone keeps the trimmed input when it cannot be parsed so the
// validator reports it instead of the number silently disappearing.
func (s *patientService) normalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if e164 := sanitizer.NormalizePhoneIn(raw, s.cfg.DefaultPhoneRegion); e164 != "" {
		return e164
	}
	return raw
}

func (s *patientService) applyDefaults(p *model.Patient) {
	if p.Gender == "" {
		p.Gender = model.GenderMale
	}
	if p.Attachments == nil {
		p.Attachments = []model.Attachment{}
	}
}

func validationError(err error) error {
	details := map[string]any{"error": err.Error()}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details["fields"] = verrs
	}
	return apperrors.Validation("Patient validation failed", details)
}

func toAppError(err error, id, message string) error {
	if apperrors.IsAppError(err) {
		return err
	}
	switch {
	case errors.Is(err, patienterrors.ErrNotFound):
		return apperrors.NotFoundWithID("Patient", id)
	case errors.Is(err, patienterrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid patient ID format")
	case errors.Is(err, patienterrors.ErrDuplicateCPF):
		return apperrors.Conflict(msgDuplicateCPF)
	}
	return apperrors.Internal(message, err)
}
