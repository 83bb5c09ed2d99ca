package history

import "time"

// HandRecord is one completed (or abandoned) hand at a room.
type HandRecord struct {
	ID             int64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RoomID         string         `gorm:"column:room_id;type:varchar(64);not null;index:idx_room_hand" json:"room_id"`
	HandNumber     int            `gorm:"column:hand_number;not null;index:idx_room_hand" json:"hand_number"`
	DealerSeatID   string         `gorm:"column:dealer_seat_id;type:varchar(64)" json:"dealer_seat_id"`
	SmallBlind     int            `gorm:"column:small_blind;not null" json:"small_blind"`
	BigBlind       int            `gorm:"column:big_blind;not null" json:"big_blind"`
	Seats          string         `gorm:"column:seats;type:json" json:"seats"`
	CommunityCards string         `gorm:"column:community_cards;type:json" json:"community_cards"`
	PotAmount      int            `gorm:"column:pot_amount;not null;default:0" json:"pot_amount"`
	Winners        string         `gorm:"column:winners;type:json" json:"winners"`
	Payouts        string         `gorm:"column:payouts;type:json" json:"payouts"`
	WinningHand    string         `gorm:"column:winning_hand;type:varchar(128)" json:"winning_hand,omitempty"`
	StartedAt      time.Time      `gorm:"column:started_at;autoCreateTime" json:"started_at"`
	CompletedAt    *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Actions        []ActionRecord `gorm:"foreignKey:HandID" json:"actions,omitempty"`
}

func (HandRecord) TableName() string {
	return "hands"
}

// ActionRecord is one betting action or street change within a hand.
type ActionRecord struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	HandID    int64     `gorm:"column:hand_id;not null;index:idx_hand_seq" json:"hand_id"`
	EventID   string    `gorm:"column:event_id;type:varchar(36);uniqueIndex;not null" json:"event_id"`
	Sequence  int       `gorm:"column:sequence_number;not null;index:idx_hand_seq" json:"sequence_number"`
	SeatID    string    `gorm:"column:seat_id;type:varchar(64)" json:"seat_id,omitempty"`
	SeatName  string    `gorm:"column:seat_name;type:varchar(128)" json:"seat_name,omitempty"`
	Phase     string    `gorm:"column:phase;type:varchar(16);not null" json:"phase"`
	Type      string    `gorm:"column:event_type;type:varchar(16);not null" json:"event_type"`
	Amount    int       `gorm:"column:amount;default:0" json:"amount"`
	PotAfter  int       `gorm:"column:pot_after;default:0" json:"pot_after"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ActionRecord) TableName() string {
	return "hand_actions"
}

// seatEntry is the JSON shape of HandRecord.Seats.
type seatEntry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Chips  int    `json:"chips"`
	IsBot  bool   `json:"is_bot,omitempty"`
	Active bool   `json:"active"`
}
