package models

import "time"

// Participant is a registered player. NationalID is the identity key shared by
// the registry copy and every tournament roster copy of the same person.
type Participant struct {
	NationalID string  `json:"national_id" gorm:"primaryKey;size:32"`
	FirstName  string  `json:"firstname" gorm:"not null"`
	LastName   string  `json:"lastname" gorm:"not null;index"`
	BirthDate  Date    `json:"birthdate" gorm:"type:varchar(10)"`
	Score      float64 `json:"score" gorm:"not null;default:0"` // cumulative, only ever increases

	CreatedAt time.Time `json:"-" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"-" gorm:"autoUpdateTime"`
}

// Clone returns a value copy detached from the receiver.
func (p *Participant) Clone() *Participant {
	cp := *p
	return &cp
}

// FullName renders "Lastname, Firstname" the way reports list players.
func (p *Participant) FullName() string {
	return p.LastName + ", " + p.FirstName
}

// IndexParticipants maps national ids to participants. Later duplicates are
// ignored so the first occurrence wins.
func IndexParticipants(participants []*Participant) map[string]*Participant {
	byID := make(map[string]*Participant, len(participants))
	for _, p := range participants {
		if p == nil {
			continue
		}
		if _, ok := byID[p.NationalID]; !ok {
			byID[p.NationalID] = p
		}
	}
	return byID
}
