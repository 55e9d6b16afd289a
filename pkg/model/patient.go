package model

import "time"

const (
	GenderMale   = "masculino"
	GenderFemale = "feminino"
	GenderOther  = "outro"

	AdultAge = 18
)

type Patient struct {
	ID               string       `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Photo            *Attachment  `json:"photo,omitempty" bson:"photo,omitempty" validate:"omitempty"`
	Name             string       `json:"name" bson:"name" validate:"required,min=2,max=150"`
	NameKey          string       `json:"-" bson:"name_key,omitempty"`
	SocialName       string       `json:"social_name,omitempty" bson:"social_name,omitempty" validate:"omitempty,max=150"`
	CPF              string       `json:"cpf" bson:"cpf" validate:"required,cpf"`
	RG               string       `json:"rg,omitempty" bson:"rg,omitempty" validate:"omitempty,max=20"`
	OtherDocType     string       `json:"other_doc_type,omitempty" bson:"other_doc_type,omitempty" validate:"omitempty,oneof=cnh passaporte carteira_trabalho titulo_eleitor"`
	OtherDocNumber   string       `json:"other_doc_number,omitempty" bson:"other_doc_number,omitempty" validate:"omitempty,max=30"`
	Gender           string       `json:"gender" bson:"gender" validate:"required,oneof=masculino feminino outro"`
	BirthDate        Date         `json:"birth_date" bson:"birth_date" validate:"required,not_future"`
	Ethnicity        string       `json:"ethnicity,omitempty" bson:"ethnicity,omitempty" validate:"omitempty,max=50"`
	Race             string       `json:"race,omitempty" bson:"race,omitempty" validate:"omitempty,oneof=branca preta parda amarela indigena"`
	BirthPlace       string       `json:"birth_place,omitempty" bson:"birth_place,omitempty" validate:"omitempty,max=100"`
	Nationality      string       `json:"nationality,omitempty" bson:"nationality,omitempty" validate:"omitempty,max=50"`
	Profession       string       `json:"profession,omitempty" bson:"profession,omitempty" validate:"omitempty,max=100"`
	MaritalStatus    string       `json:"marital_status,omitempty" bson:"marital_status,omitempty" validate:"omitempty,oneof=solteiro casado divorciado viuvo uniao_estavel"`
	MotherName       string       `json:"mother_name,omitempty" bson:"mother_name,omitempty" validate:"omitempty,max=150"`
	MotherProfession string       `json:"mother_profession,omitempty" bson:"mother_profession,omitempty" validate:"omitempty,max=100"`
	FatherName       string       `json:"father_name,omitempty" bson:"father_name,omitempty" validate:"omitempty,max=150"`
	FatherProfession string       `json:"father_profession,omitempty" bson:"father_profession,omitempty" validate:"omitempty,max=100"`
	GuardianName     string       `json:"guardian_name,omitempty" bson:"guardian_name,omitempty" validate:"omitempty,max=150"`
	GuardianCPF      string       `json:"guardian_cpf,omitempty" bson:"guardian_cpf,omitempty" validate:"omitempty,cpf"`
	SpouseName       string       `json:"spouse_name,omitempty" bson:"spouse_name,omitempty" validate:"omitempty,max=150"`
	IsNewbornInPlan  bool         `json:"is_newborn_in_plan" bson:"is_newborn_in_plan"`
	LegacyCode       string       `json:"legacy_code,omitempty" bson:"legacy_code,omitempty" validate:"omitempty,max=50"`
	Observations     string       `json:"observations,omitempty" bson:"observations,omitempty" validate:"omitempty,max=2000"`
	Attachments      []Attachment `json:"attachments" bson:"attachments" validate:"max=20,dive"`
	Contact          Contact      `json:"contact" bson:"contact"`
	Address          Address      `json:"address" bson:"address"`
	CreatedAt        time.Time    `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt        time.Time    `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

type Contact struct {
	Email     string `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Cellphone string `json:"cellphone,omitempty" bson:"cellphone,omitempty" validate:"omitempty,e164"`
	Phone1    string `json:"phone1,omitempty" bson:"phone1,omitempty" validate:"omitempty,e164"`
	Phone2    string `json:"phone2,omitempty" bson:"phone2,omitempty" validate:"omitempty,e164"`
}

type Address struct {
	CEP          string `json:"cep,omitempty" bson:"cep,omitempty" validate:"omitempty,cep"`
	Street       string `json:"street,omitempty" bson:"street,omitempty" validate:"omitempty,max=200"`
	Number       string `json:"number,omitempty" bson:"number,omitempty" validate:"omitempty,max=20"`
	Complement   string `json:"complement,omitempty" bson:"complement,omitempty" validate:"omitempty,max=100"`
	Neighborhood string `json:"neighborhood,omitempty" bson:"neighborhood,omitempty" validate:"omitempty,max=100"`
	City         string `json:"city,omitempty" bson:"city,omitempty" validate:"omitempty,max=100"`
	State        string `json:"state,omitempty" bson:"state,omitempty" validate:"omitempty,uf"`
	Reference    string `json:"reference,omitempty" bson:"reference,omitempty" validate:"omitempty,max=200"`
}

// Attachment describes an uploaded file. Only metadata is stored.
type Attachment struct {
	Name        string `json:"name" bson:"name" validate:"required,max=255"`
	ContentType string `json:"content_type" bson:"content_type" validate:"required,max=100"`
	SizeBytes   int64  `json:"size_bytes" bson:"size_bytes" validate:"min=0"`
	URL         string `json:"url,omitempty" bson:"url,omitempty" validate:"omitempty,url"`
}

// IsZero reports whether every field is empty. A PATCH sending "photo": {}
// removes the photo.
func (a Attachment) IsZero() bool {
	return a == Attachment{}
}

// PostalAddress is the part of an address that can be resolved from a CEP.
type PostalAddress struct {
	CEP          string `json:"cep" bson:"cep"`
	Street       string `json:"street" bson:"street"`
	Complement   string `json:"complement,omitempty" bson:"complement,omitempty"`
	Neighborhood string `json:"neighborhood" bson:"neighborhood"`
	City         string `json:"city" bson:"city"`
	State        string `json:"state" bson:"state"`
}

type PatientUpdate struct {
	Photo            *Attachment   `json:"photo,omitempty"`
	Name             *string       `json:"name,omitempty"`
	SocialName       *string       `json:"social_name,omitempty"`
	CPF              *string       `json:"cpf,omitempty"`
	RG               *string       `json:"rg,omitempty"`
	OtherDocType     *string       `json:"other_doc_type,omitempty"`
	OtherDocNumber   *string       `json:"other_doc_number,omitempty"`
	Gender           *string       `json:"gender,omitempty"`
	BirthDate        *Date         `json:"birth_date,omitempty"`
	Ethnicity        *string       `json:"ethnicity,omitempty"`
	Race             *string       `json:"race,omitempty"`
	BirthPlace       *string       `json:"birth_place,omitempty"`
	Nationality      *string       `json:"nationality,omitempty"`
	Profession       *string       `json:"profession,omitempty"`
	MaritalStatus    *string       `json:"marital_status,omitempty"`
	MotherName       *string       `json:"mother_name,omitempty"`
	MotherProfession *string       `json:"mother_profession,omitempty"`
	FatherName       *string       `json:"father_name,omitempty"`
	FatherProfession *string       `json:"father_profession,omitempty"`
	GuardianName     *string       `json:"guardian_name,omitempty"`
	GuardianCPF      *string       `json:"guardian_cpf,omitempty"`
	SpouseName       *string       `json:"spouse_name,omitempty"`
	IsNewbornInPlan  *bool         `json:"is_newborn_in_plan,omitempty"`
	LegacyCode       *string       `json:"legacy_code,omitempty"`
	Observations     *string       `json:"observations,omitempty"`
	Attachments      *[]Attachment `json:"attachments,omitempty"`
	Contact          *Contact      `json:"contact,omitempty"`
	Address          *Address      `json:"address,omitempty"`
}

// AgeAt returns the completed years between the birth date and now.
func (p *Patient) AgeAt(now time.Time) int {
	if p.BirthDate.IsZero() {
		return 0
	}
	b := p.BirthDate
	age := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

func (p *Patient) IsMinorAt(now time.Time) bool {
	return !p.BirthDate.IsZero() && p.AgeAt(now) < AdultAge
}

// IsComplete reports whether every field a CEP can resolve is filled.
func (a Address) IsComplete() bool {
	return a.Street != "" && a.Neighborhood != "" && a.City != "" && a.State != ""
}

// Fill copies resolved postal fields into empty address fields only.
// It returns true if anything changed.
func (a *Address) Fill(pa *PostalAddress) bool {
	if pa == nil {
		return false
	}
	changed := false
	set := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
			changed = true
		}
	}
	set(&a.CEP, pa.CEP)
	set(&a.Street, pa.Street)
	set(&a.Complement, pa.Complement)
	set(&a.Neighborhood, pa.Neighborhood)
	set(&a.City, pa.City)
	set(&a.State, pa.State)
	return changed
}

// Apply merges the non-nil fields of u into p.
func (u *PatientUpdate) Apply(p *Patient) {
	setStr := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	if u.Photo != nil {
		if u.Photo.IsZero() {
			p.Photo = nil
		} else {
			p.Photo = u.Photo
		}
	}
	setStr(&p.Name, u.Name)
	setStr(&p.SocialName, u.SocialName)
	setStr(&p.CPF, u.CPF)
	setStr(&p.RG, u.RG)
	setStr(&p.OtherDocType, u.OtherDocType)
	setStr(&p.OtherDocNumber, u.OtherDocNumber)
	setStr(&p.Gender, u.Gender)
	if u.BirthDate != nil {
		p.BirthDate = *u.BirthDate
	}
	setStr(&p.Ethnicity, u.Ethnicity)
	setStr(&p.Race, u.Race)
	setStr(&p.BirthPlace, u.BirthPlace)
	setStr(&p.Nationality, u.Nationality)
	setStr(&p.Profession, u.Profession)
	setStr(&p.MaritalStatus, u.MaritalStatus)
	setStr(&p.MotherName, u.MotherName)
	setStr(&p.MotherProfession, u.MotherProfession)
	setStr(&p.FatherName, u.FatherName)
	setStr(&p.FatherProfession, u.FatherProfession)
	setStr(&p.GuardianName, u.GuardianName)
	setStr(&p.GuardianCPF, u.GuardianCPF)
	setStr(&p.SpouseName, u.SpouseName)
	if u.IsNewbornInPlan != nil {
		p.IsNewbornInPlan = *u.IsNewbornInPlan
	}
	setStr(&p.LegacyCode, u.LegacyCode)
	setStr(&p.Observations, u.Observations)
	if u.Attachments != nil {
		p.Attachments = *u.Attachments
	}
	if u.Contact != nil {
		p.Contact = *u.Contact
	}
	if u.Address != nil {
		p.Address = *u.Address
	}
}

// IsEmpty reports whether the update carries no field at all.
func (u *PatientUpdate) IsEmpty() bool {
	return *u == PatientUpdate{}
}
