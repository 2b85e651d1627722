package domain

// Pastor is a bookable staff member. CredentialHash is an argon2id encoded
// hash; the plaintext credential is never stored.
type Pastor struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"nome"`
	CredentialHash string `json:"senha_hash,omitempty"`
	Phone          string `json:"telefone,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// AvailabilityWindow ("escala") is one pastor's declared availability on one
// date. At most one window may exist per (pastor, date) pair; the schedule
// service rejects duplicates. Expired windows are purged on fetch and daily.
type AvailabilityWindow struct {
	ID          string `json:"id,omitempty"`
	PastorID    string `json:"pastor_id,omitempty"`
	PastorName  string `json:"pastor"`
	Date        string `json:"data"`
	StartTime   string `json:"hora_inicio"`
	EndTime     string `json:"hora_fim"`
	SlotMinutes int    `json:"duracao_slot,omitempty"`
	LunchStart  string `json:"almoco_inicio,omitempty"`
	LunchEnd    string `json:"almoco_fim,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// DefaultSlotMinutes is the slot granularity used when a window does not
// declare its own.
const DefaultSlotMinutes = 30

// Granularity returns the window's slot size in minutes, defaulted.
func (w AvailabilityWindow) Granularity() int {
	if w.SlotMinutes > 0 {
		return w.SlotMinutes
	}
	return DefaultSlotMinutes
}

// SystemConfig is the singleton operational configuration shown to visitors
// and used to verify the admin credential.
type SystemConfig struct {
	ID                  string `json:"id,omitempty"`
	BusinessHours       string `json:"horario_funcionamento,omitempty"`
	ContactInfo         string `json:"contato,omitempty"`
	PolicyText          string `json:"politica,omitempty"`
	AdminCredentialHash string `json:"admin_senha_hash,omitempty"`
	UpdatedAt           string `json:"updated_at,omitempty"`
}
