package domain

// Polaris notification type ids seen in the creation log.
const (
	NotificationFirstOverdue  = 1
	NotificationHold          = 2
	NotificationSecondOverdue = 11
	NotificationThirdOverdue  = 12
)

// Polaris delivery option ids. Voice and SMS are the two legacy channels the
// generic correlation path understands; anything else needs a registered
// channel verifier.
const (
	ChannelMail  = 1
	ChannelEmail = 2
	ChannelVoice = 3
	ChannelSMS   = 8
)

// Lookups carries the code -> name maps the core needs from its environment.
// It is built once at startup from configuration and treated as immutable.
type Lookups struct {
	CategoryNames map[int]string
	ChannelNames  map[int]string
}

// DefaultLookups returns the lookup tables for a stock Polaris install.
func DefaultLookups() Lookups {
	return Lookups{
		CategoryNames: map[int]string{
			NotificationFirstOverdue:  "1st Overdue",
			NotificationHold:          "Hold Ready",
			NotificationSecondOverdue: "2nd Overdue",
			NotificationThirdOverdue:  "3rd Overdue",
		},
		ChannelNames: map[int]string{
			ChannelMail:  "Mailed Notice",
			ChannelEmail: "Email",
			ChannelVoice: "Phone (Voice)",
			ChannelSMS:   "TXT Messaging",
		},
	}
}

// CategoryName resolves a notification type id to its display name.
func (l Lookups) CategoryName(typeID int) string {
	if name, ok := l.CategoryNames[typeID]; ok {
		return name
	}
	return SubmissionCategoryUnknown
}

// ChannelName resolves a delivery option id to its display name.
func (l Lookups) ChannelName(optionID int) string {
	if name, ok := l.ChannelNames[optionID]; ok {
		return name
	}
	return SubmissionCategoryUnknown
}

// OverdueFamily reports whether a notification type id belongs to the
// overdue family (first, second or third overdue).
func OverdueFamily(typeID int) bool {
	switch typeID {
	case NotificationFirstOverdue, NotificationSecondOverdue, NotificationThirdOverdue:
		return true
	}
	return false
}

// SubmissionCategoryFor maps a creation-log notification type to the
// category string used in vendor submission exports. Types outside the hold
// and overdue families map to "unknown", which can never match a submission
// row.
func SubmissionCategoryFor(typeID int) string {
	switch {
	case typeID == NotificationHold:
		return SubmissionCategoryHolds
	case OverdueFamily(typeID):
		return SubmissionCategoryOverdue
	default:
		return SubmissionCategoryUnknown
	}
}
