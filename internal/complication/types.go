package complication

import (
	"strconv"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// TileID identifies one tile slot on the host.
type TileID int

func (id TileID) String() string { return strconv.Itoa(int(id)) }

// Kind names the provider that renders a tile.
type Kind string

// DataType is the shape of payload the host asks for.
type DataType int

const (
	ShortText DataType = iota + 1
	LongText
	RangedValue
	Icon
	SmallImage
	LargeImage
)

var dataTypeNames = map[DataType]string{
	ShortText:   "short_text",
	LongText:    "long_text",
	RangedValue: "ranged_value",
	Icon:        "icon",
	SmallImage:  "small_image",
	LargeImage:  "large_image",
}

func (t DataType) String() string {
	if s, ok := dataTypeNames[t]; ok {
		return s
	}
	return "unknown(" + strconv.Itoa(int(t)) + ")"
}

var ErrUnknownDataType = zerr.New("unknown data type")

// ParseDataType accepts the snake_case names used in config files.
func ParseDataType(s string) (DataType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range dataTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, zerr.With(zerr.Wrap(ErrUnknownDataType, "parse data type"), "value", s)
}

// TapKind says what happens when the user taps a tile.
type TapKind int

const (
	ActionMenu TapKind = iota
	ActionWarningSync
	ActionWarningOld
	ActionNone
)

func (k TapKind) String() string {
	switch k {
	case ActionWarningSync:
		return "warning_sync"
	case ActionWarningOld:
		return "warning_old"
	case ActionNone:
		return "none"
	default:
		return "menu"
	}
}

// TapAction is bound to one tile. Warning actions carry the timestamp the
// warning is about (zero when unknown).
type TapAction struct {
	Kind     TapKind
	Tile     TileID
	Provider Kind
	Since    time.Time
}

// Icon names understood by the host.
const (
	IconSyncAlert   = "sync_alert"
	IconAlert       = "alert"
	IconAlertBurnIn = "alert_burnin"
)

// Payload is what the host paints. Only the fields relevant to Type are set.
type Payload struct {
	Type DataType

	ShortText  string
	ShortTitle string
	LongText   string
	LongTitle  string

	Icon       string
	BurnInIcon string
	Image      string

	Min, Max, Value float64

	Tap TapAction
}

// Registration is the persisted record of an active tile.
type Registration struct {
	ID             TileID
	Kind           Kind
	DependsOnSince bool
}
