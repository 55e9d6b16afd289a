package testutil

import (
	"intake/pkg/model"
	"time"
)

const (
	ValidCPF        = "111.444.777-35"
	AnotherValidCPF = "529.982.247-25"
	InvalidCPF      = "111.444.777-36"
)

type PatientBuilder struct {
	p model.Patient
}

func NewPatientBuilder() *PatientBuilder {
	return &PatientBuilder{
		p: model.Patient{
			Name:      "Maria da Silva",
			CPF:       ValidCPF,
			Gender:    model.GenderFemale,
			BirthDate: model.NewDate(1990, time.May, 10),
			Contact: model.Contact{
				Email:     "maria@example.com",
				Cellphone: "+5511987654321",
			},
			Address: model.Address{
				CEP:          "01310-100",
				Street:       "Avenida Paulista",
				Number:       "1000",
				Neighborhood: "Bela Vista",
				City:         "São Paulo",
				State:        "SP",
			},
		},
	}
}

func (b *PatientBuilder) WithName(name string) *PatientBuilder {
	b.p.Name = name
	return b
}

func (b *PatientBuilder) WithCPF(cpf string) *PatientBuilder {
	b.p.CPF = cpf
	return b
}

func (b *PatientBuilder) WithBirthDate(d model.Date) *PatientBuilder {
	b.p.BirthDate = d
	return b
}

func (b *PatientBuilder) WithGuardian(name, cpf string) *PatientBuilder {
	b.p.GuardianName = name
	b.p.GuardianCPF = cpf
	return b
}

func (b *PatientBuilder) Build() model.Patient {
	return b.p
}

func ValidPatient() model.Patient {
	return NewPatientBuilder().Build()
}

func MinorPatient() model.Patient {
	return NewPatientBuilder().
		WithName("Pedro Souza").
		WithCPF(AnotherValidCPF).
		WithBirthDate(model.DateOf(time.Now().AddDate(-10, 0, 0))).
		Build()
}
