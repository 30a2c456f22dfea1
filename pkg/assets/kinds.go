package assets

import (
	"fmt"
	"strings"
)

// FileKind is one of the nine files a playable data set is made of.
type FileKind uint8

const (
	AudioHeader FileKind = iota
	AudioData
	Config
	MapData
	MapDirectory
	GraphicsDictionary
	GraphicsData
	GraphicsHeader
	// VSWAP: walls, sprites and digitized sounds
	DigitizedAssets
)

const NUM_KINDS = 9

var AllKinds = []FileKind{
	AudioHeader,
	AudioData,
	Config,
	MapData,
	MapDirectory,
	GraphicsDictionary,
	GraphicsData,
	GraphicsHeader,
	DigitizedAssets,
}

var prefixes = [NUM_KINDS]string{
	"AUDIOHED.WL",
	"AUDIOT.WL",
	"CONFIG.WL",
	"GAMEMAPS.WL",
	"MAPHEAD.WL",
	"VGADICT.WL",
	"VGAGRAPH.WL",
	"VGAHEAD.WL",
	"VSWAP.WL",
}

var kindNames = [NUM_KINDS]string{
	"audio-header",
	"audio-data",
	"config",
	"map-data",
	"map-directory",
	"graphics-dictionary",
	"graphics-data",
	"graphics-header",
	"vswap",
}

func (k FileKind) Valid() bool {
	return k < NUM_KINDS
}

// Prefix is the canonical file name without its tier digit.
func (k FileKind) Prefix() string {
	if !k.Valid() {
		return ""
	}
	return prefixes[k]
}

func (k FileKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("FileKind(%d)", uint8(k))
	}
	return kindNames[k]
}

// Tier identifies the edition a file belongs to. Its value is the digit at
// the end of the file name and higher tiers win.
type Tier uint8

const (
	Shareware Tier = 1
	Episode3  Tier = 3
	FullSix   Tier = 6
)

func (t Tier) Valid() bool {
	return t == Shareware || t == Episode3 || t == FullSix
}

// Uploadable reports whether users may supply files of this tier. The
// shareware files ship with the launcher and are never persisted.
func (t Tier) Uploadable() bool {
	return t == Episode3 || t == FullSix
}

func (t Tier) Digit() byte {
	return '0' + byte(t)
}

func (t Tier) String() string {
	switch t {
	case Shareware:
		return "shareware"
	case Episode3:
		return "episode-3"
	case FullSix:
		return "full"
	}
	return fmt.Sprintf("Tier(%d)", uint8(t))
}

// Filename returns the canonical name of a file, e.g. VSWAP.WL6.
func Filename(kind FileKind, tier Tier) string {
	return kind.Prefix() + string(tier.Digit())
}

// Classify maps a file name to its kind and tier. Anything that is not
// exactly one of the canonical names is rejected.
func Classify(name string) (FileKind, Tier, bool) {
	if len(name) < 2 {
		return 0, 0, false
	}

	tier := Tier(name[len(name)-1] - '0')
	if name[len(name)-1] < '0' || !tier.Valid() {
		return 0, 0, false
	}

	prefix := name[:len(name)-1]
	for _, kind := range AllKinds {
		if prefix == kind.Prefix() {
			return kind, tier, true
		}
	}

	return 0, 0, false
}

// ParseTier accepts either the tier digit or its name.
func ParseTier(value string) (Tier, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, tier := range []Tier{Shareware, Episode3, FullSix} {
		if value == tier.String() || value == string(tier.Digit()) {
			return tier, nil
		}
	}
	return 0, fmt.Errorf("unknown tier: %q", value)
}
