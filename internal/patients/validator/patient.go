package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	_ "time/tzdata"

	"intake/pkg/cpf"
	"intake/pkg/locale"
	"intake/pkg/logger"
	"intake/pkg/model"
	"intake/pkg/sanitizer"

	"github.com/go-playground/validator/v10"
)

const MsgInvalidCPF = "CPF inválido"

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Fields returns the failing field paths in order.
func (v ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(v))
	for _, err := range v {
		fields = append(fields, err.Field)
	}
	return fields
}

type PatientValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
	now      func() time.Time
}

func NewPatientValidator(log *logger.Logger) *PatientValidator {
	v := &PatientValidator{
		validate: validator.New(),
		logger:   log,
		now:      time.Now,
	}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.validate.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(model.Date); ok {
			return d.Time
		}
		return nil
	}, model.Date{})

	if err := v.validate.RegisterValidation("cpf", validateCPF); err != nil {
		log.Fatal("Failed to register 'cpf' validator", "error", err)
	}
	if err := v.validate.RegisterValidation("uf", validateUF); err != nil {
		log.Fatal("Failed to register 'uf' validator", "error", err)
	}
	if err := v.validate.RegisterValidation("cep", validateCEP); err != nil {
		log.Fatal("Failed to register 'cep' validator", "error", err)
	}
	if err := v.validate.RegisterValidation("not_future", v.validateNotFuture); err != nil {
		log.Fatal("Failed to register 'not_future' validator", "error", err)
	}

	log.Info("Patient validator initialized successfully")

	return v
}

func validateCPF(fl validator.FieldLevel) bool {
	return cpf.IsValid(fl.Field().String())
}

func validateUF(fl validator.FieldLevel) bool {
	return locale.IsValidUF(fl.Field().String())
}

func validateCEP(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return len(s) == sanitizer.CEPLength && sanitizer.NormalizeCEP(s) == s
}

// validateNotFuture compares calendar days, so a birth date of today passes.
func (v *PatientValidator) validateNotFuture(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return !model.DateOf(t).After(model.DateOf(v.localNow("")).Time)
}

// localNow is the current wall clock in the timezone of the given UF, so a
// birthday turns over at local midnight rather than UTC midnight.
func (v *PatientValidator) localNow(uf string) time.Time {
	now := v.now()
	loc, err := time.LoadLocation(locale.TimezoneForState(uf))
	if err != nil {
		return now
	}
	return now.In(loc)
}

func (v *PatientValidator) Validate(p *model.Patient) error {
	var validationErrors ValidationErrors

	if err := v.validate.Struct(p); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return err
		}
		validationErrors = v.translateValidationErrors(validationErrs)
	}

	validationErrors = append(validationErrors, v.validateBusinessRules(p)...)
	if len(validationErrors) > 0 {
		return validationErrors
	}
	return nil
}

// ValidateCPF checks a single CPF the same way a patient record is checked.
func (v *PatientValidator) ValidateCPF(raw string) error {
	if !cpf.IsValid(raw) {
		return ValidationErrors{{Field: "cpf", Message: MsgInvalidCPF}}
	}
	return nil
}

func (v *PatientValidator) validateBusinessRules(p *model.Patient) ValidationErrors {
	var errs ValidationErrors

	if p.GuardianCPF != "" && cpf.Digits(p.GuardianCPF) == cpf.Digits(p.CPF) {
		errs = append(errs, ValidationError{
			Field:   "guardian_cpf",
			Message: "CPF do responsável deve ser diferente do CPF do paciente",
		})
	}

	if p.IsMinorAt(v.localNow(p.Address.State)) && strings.TrimSpace(p.GuardianName) == "" {
		errs = append(errs, ValidationError{
			Field:   "guardian_name",
			Message: fmt.Sprintf("Responsável é obrigatório para menores de %d anos", model.AdultAge),
		})
	}

	if p.Photo != nil && !strings.HasPrefix(strings.ToLower(p.Photo.ContentType), "image/") {
		errs = append(errs, ValidationError{
			Field:   "photo.content_type",
			Message: "Foto deve ser uma imagem",
		})
	}

	if p.OtherDocType != "" && p.OtherDocNumber == "" {
		errs = append(errs, ValidationError{
			Field:   "other_doc_number",
			Message: "Número do documento é obrigatório quando o tipo é informado",
		})
	}

	return errs
}

func (v *PatientValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		field := fieldPath(err)
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = requiredMessage(field)
		case "min":
			message = fmt.Sprintf("%s deve ter no mínimo %s %s", field, err.Param(), unit(err.Kind()))
		case "max":
			message = fmt.Sprintf("%s deve ter no máximo %s %s", field, err.Param(), unit(err.Kind()))
		case "oneof":
			message = fmt.Sprintf("%s deve ser um de: %s", field, strings.ReplaceAll(err.Param(), " ", ", "))
		case "cpf":
			message = MsgInvalidCPF
			if field == "guardian_cpf" {
				message = "CPF do responsável inválido"
			}
		case "email":
			message = "Email inválido"
		case "e164":
			message = "Telefone inválido"
		case "cep":
			message = "CEP inválido"
		case "uf":
			message = "UF inválida"
		case "not_future":
			message = "Data de nascimento não pode estar no futuro"
		case "url":
			message = fmt.Sprintf("%s deve ser uma URL válida", field)
		case "mongodb":
			message = "ID inválido"
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   field,
			Message: message,
		})
	}

	return validationErrors
}

// fieldPath drops the root struct name: "Patient.contact.email" -> "contact.email".
func fieldPath(err validator.FieldError) string {
	ns := err.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return err.Field()
}

func requiredMessage(field string) string {
	switch field {
	case "name":
		return "Nome é obrigatório"
	case "cpf":
		return "CPF é obrigatório"
	case "gender":
		return "Sexo é obrigatório"
	case "birth_date":
		return "Data de nascimento é obrigatória"
	}
	return fmt.Sprintf("%s é obrigatório", field)
}

func unit(kind reflect.Kind) string {
	switch kind {
	case reflect.Slice, reflect.Array, reflect.Map:
		return "itens"
	case reflect.Int, reflect.Int64, reflect.Float64:
		return ""
	}
	return "caracteres"
}
