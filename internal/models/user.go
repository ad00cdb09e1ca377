package models

import (
	"strings"
	"time"
)

// Proficiency levels a user can claim for a skill they teach.
const (
	ProficiencyBeginner     = "Beginner"
	ProficiencyIntermediate = "Intermediate"
	ProficiencyAdvanced     = "Advanced"
	ProficiencyExpert       = "Expert"
)

// Roles assignable to a user. New accounts are always students.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// DefaultKnowledgeCredits is granted to every new account.
const DefaultKnowledgeCredits = 5

// Skill is a single entry in a user's teachable-skill list.
type Skill struct {
	Name        string `json:"name" validate:"required"`
	Proficiency string `json:"proficiency" validate:"omitempty,oneof=Beginner Intermediate Advanced Expert"`
}

// User represents a SkillSwap member.
type User struct {
	ID       string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name     string `json:"name" gorm:"type:varchar(50)" validate:"required,min=2,max=50"`
	Email    string `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email,endswith=@srmist.edu.in"`
	Password string `json:"-" gorm:"type:varchar(255)" validate:"required,min=6"` // bcrypt hash, never serialized

	SkillsCanTeach []Skill  `json:"skillsCanTeach" gorm:"serializer:json"`
	SkillsToLearn  []string `json:"skillsToLearn" gorm:"serializer:json"`

	// KnowledgeCredits is the gamification currency. It is set once at
	// registration and only ever displayed after that.
	KnowledgeCredits int `json:"knowledgeCredits" gorm:"default:5"`

	Bio        string `json:"bio" gorm:"type:varchar(300)" validate:"max=300"`
	Avatar     string `json:"avatar" gorm:"type:varchar(255)"`
	IsVerified bool   `json:"isVerified" gorm:"default:false"`
	Role       string `json:"role" gorm:"type:varchar(20);default:student"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NormalizeEmail lowercases and trims an email so the uniqueness check and
// the institutional-domain check both see the canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasInstitutionalDomain reports whether the (normalized) email belongs to
// the SRM Institute domain. Registration is restricted to this domain.
func HasInstitutionalDomain(email string) bool {
	return strings.HasSuffix(email, "@srmist.edu.in")
}

// NormalizeSkills applies the Intermediate default to any skill entry that
// omits a proficiency.
func NormalizeSkills(skills []Skill) []Skill {
	for i := range skills {
		if skills[i].Proficiency == "" {
			skills[i].Proficiency = ProficiencyIntermediate
		}
	}
	return skills
}

// Sanitized returns a copy of the user with the password hash cleared.
// The json:"-" tag already hides the hash from serialization; clearing it
// keeps it out of logs and request-context locals too.
func (u User) Sanitized() User {
	u.Password = ""
	return u
}
