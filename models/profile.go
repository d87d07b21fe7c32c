package models

import (
	"fmt"
	"time"
)

// Field names a top-level section of a profile document. The value doubles as
// the JSON key, the mongo key and the gorm column of the section.
type Field string

const (
	FieldLocation     Field = "location"
	FieldEducation    Field = "education"
	FieldSkill        Field = "skill"
	FieldCollaborator Field = "collaborator"
	FieldProject      Field = "project"
	FieldInternship   Field = "internship"
	FieldAchievement  Field = "achievement"
)

// Fields lists every section in document order.
var Fields = []Field{
	FieldLocation, FieldEducation, FieldSkill, FieldProject,
	FieldInternship, FieldAchievement, FieldCollaborator,
}

// IsList reports whether f is a repeatable sub-collection.
func (f Field) IsList() bool {
	return f == FieldProject || f == FieldInternship || f == FieldAchievement
}

// Valid reports whether f is a known section.
func (f Field) Valid() bool {
	for _, k := range Fields {
		if f == k {
			return true
		}
	}
	return false
}

// Profile is the per-user aggregate. Nil single-valued sections were never written.
type Profile struct {
	UserID       uint          `json:"userId" bson:"userId"`
	Location     *Location     `json:"location" bson:"location,omitempty"`
	Education    *Education    `json:"education" bson:"education,omitempty"`
	Skill        []string      `json:"skill" bson:"skill"`
	Project      []Project     `json:"project" bson:"project"`
	Internship   []Internship  `json:"internship" bson:"internship"`
	Achievement  []Achievement `json:"achievement" bson:"achievement"`
	Collaborator *Collaborator `json:"collaborator" bson:"collaborator,omitempty"`
	CreatedAt    time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt" bson:"updatedAt"`
}

type Location struct {
	City  string `json:"city" bson:"city"`
	State string `json:"state" bson:"state"`
}

// EducationTier is one stage of education. primary and secondary use Board,
// vocational and degree use Stream.
type EducationTier struct {
	Institution string `json:"institution" bson:"institution"`
	Board       string `json:"board,omitempty" bson:"board,omitempty"`
	Stream      string `json:"stream,omitempty" bson:"stream,omitempty"`
	Marks       string `json:"marks,omitempty" bson:"marks,omitempty"`
}

type Education struct {
	Qualification string         `json:"qualification" bson:"qualification"`
	Primary       *EducationTier `json:"primary" bson:"primary"`
	Secondary     *EducationTier `json:"secondary" bson:"secondary"`
	Vocational    *EducationTier `json:"vocational" bson:"vocational"`
	Degree        *EducationTier `json:"degree" bson:"degree"`
}

type Project struct {
	ID           string `json:"id" bson:"_id"`
	Name         string `json:"name" bson:"name"`
	Description  string `json:"description" bson:"description"`
	ExternalLink string `json:"externalLink" bson:"externalLink"`
	RepoLink     string `json:"repoLink" bson:"repoLink"`
	PhotoURL     string `json:"photoUrl" bson:"photoUrl"`
}

type Internship struct {
	ID             string `json:"id" bson:"_id"`
	CompanyName    string `json:"companyName" bson:"companyName"`
	Duration       string `json:"duration" bson:"duration"`
	Stipend        string `json:"stipend" bson:"stipend"`
	Description    string `json:"description" bson:"description"`
	CertificateURL string `json:"certificateUrl" bson:"certificateUrl"`
}

type Achievement struct {
	ID             string `json:"id" bson:"_id"`
	Name           string `json:"name" bson:"name"`
	Level          string `json:"level" bson:"level"`
	Description    string `json:"description" bson:"description"`
	CertificateURL string `json:"certificateUrl" bson:"certificateUrl"`
}

type Collaborator struct {
	IsApplied            bool   `json:"isApplied" bson:"isApplied"`
	PaymentPreference    string `json:"paymentPreference" bson:"paymentPreference"`
	PitchStatus          bool   `json:"pitchStatus" bson:"pitchStatus"`
	IsBlocked            bool   `json:"isBlocked" bson:"isBlocked"`
	PhotoVerificationURL string `json:"photoVerificationUrl" bson:"photoVerificationUrl"`
	IDVerificationURL    string `json:"idVerificationUrl" bson:"idVerificationUrl"`
	IsVerified           bool   `json:"isVerified" bson:"isVerified"`
}

// Item is an element of a repeatable section. Every item owns one asset.
type Item interface {
	ItemID() string
	SetItemID(id string)
	AssetURL() string
	SetAssetURL(url string)
}

func (p *Project) ItemID() string       { return p.ID }
func (p *Project) SetItemID(id string)  { p.ID = id }
func (p *Project) AssetURL() string     { return p.PhotoURL }
func (p *Project) SetAssetURL(u string) { p.PhotoURL = u }

func (i *Internship) ItemID() string       { return i.ID }
func (i *Internship) SetItemID(id string)  { i.ID = id }
func (i *Internship) AssetURL() string     { return i.CertificateURL }
func (i *Internship) SetAssetURL(u string) { i.CertificateURL = u }

func (a *Achievement) ItemID() string       { return a.ID }
func (a *Achievement) SetItemID(id string)  { a.ID = id }
func (a *Achievement) AssetURL() string     { return a.CertificateURL }
func (a *Achievement) SetAssetURL(u string) { a.CertificateURL = u }

// Items returns pointers into the list named by f, so changes made through them
// are visible on p.
func (p *Profile) Items(f Field) []Item {
	var out []Item
	switch f {
	case FieldProject:
		for i := range p.Project {
			out = append(out, &p.Project[i])
		}
	case FieldInternship:
		for i := range p.Internship {
			out = append(out, &p.Internship[i])
		}
	case FieldAchievement:
		for i := range p.Achievement {
			out = append(out, &p.Achievement[i])
		}
	}
	return out
}

// SetItems replaces the list named by f. Every item must have the list's concrete type.
func (p *Profile) SetItems(f Field, items []Item) error {
	switch f {
	case FieldProject:
		list := make([]Project, 0, len(items))
		for _, it := range items {
			v, ok := it.(*Project)
			if !ok {
				return fmt.Errorf("item %T does not belong to %s", it, f)
			}
			list = append(list, *v)
		}
		p.Project = list
	case FieldInternship:
		list := make([]Internship, 0, len(items))
		for _, it := range items {
			v, ok := it.(*Internship)
			if !ok {
				return fmt.Errorf("item %T does not belong to %s", it, f)
			}
			list = append(list, *v)
		}
		p.Internship = list
	case FieldAchievement:
		list := make([]Achievement, 0, len(items))
		for _, it := range items {
			v, ok := it.(*Achievement)
			if !ok {
				return fmt.Errorf("item %T does not belong to %s", it, f)
			}
			list = append(list, *v)
		}
		p.Achievement = list
	default:
		return fmt.Errorf("%s is not a list section", f)
	}
	return nil
}

// FindItem returns the item with the given id, or nil.
func (p *Profile) FindItem(f Field, id string) Item {
	if p == nil || id == "" {
		return nil
	}
	for _, it := range p.Items(f) {
		if it.ItemID() == id {
			return it
		}
	}
	return nil
}

// SetField replaces a single-valued section. value must be the section's type
// (value or pointer; skill takes []string).
func (p *Profile) SetField(f Field, value any) error {
	switch f {
	case FieldLocation:
		switch v := value.(type) {
		case Location:
			p.Location = &v
		case *Location:
			p.Location = v
		default:
			return fmt.Errorf("location: unexpected %T", value)
		}
	case FieldEducation:
		switch v := value.(type) {
		case Education:
			p.Education = &v
		case *Education:
			p.Education = v
		default:
			return fmt.Errorf("education: unexpected %T", value)
		}
	case FieldSkill:
		v, ok := value.([]string)
		if !ok {
			return fmt.Errorf("skill: unexpected %T", value)
		}
		p.Skill = v
	case FieldCollaborator:
		switch v := value.(type) {
		case Collaborator:
			p.Collaborator = &v
		case *Collaborator:
			p.Collaborator = v
		default:
			return fmt.Errorf("collaborator: unexpected %T", value)
		}
	default:
		return fmt.Errorf("%s is not a single-valued section", f)
	}
	return nil
}

// Only clears every section not named in fields. No fields keeps everything.
func (p *Profile) Only(fields ...Field) {
	if p == nil || len(fields) == 0 {
		return
	}
	keep := make(map[Field]bool, len(fields))
	for _, f := range fields {
		keep[f] = true
	}
	if !keep[FieldLocation] {
		p.Location = nil
	}
	if !keep[FieldEducation] {
		p.Education = nil
	}
	if !keep[FieldSkill] {
		p.Skill = nil
	}
	if !keep[FieldProject] {
		p.Project = nil
	}
	if !keep[FieldInternship] {
		p.Internship = nil
	}
	if !keep[FieldAchievement] {
		p.Achievement = nil
	}
	if !keep[FieldCollaborator] {
		p.Collaborator = nil
	}
}
