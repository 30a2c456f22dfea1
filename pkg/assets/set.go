package assets

import (
	"github.com/repeale/fp-go/option"
)

// AssetSet records which files have known contents for a single tier.
// Bytes from different tiers never live in the same set.
type AssetSet struct {
	tier  Tier
	files map[FileKind][]byte
}

func NewAssetSet(tier Tier) *AssetSet {
	return &AssetSet{
		tier:  tier,
		files: make(map[FileKind][]byte),
	}
}

func (s *AssetSet) Tier() Tier {
	return s.tier
}

// SetTier moves the set to another tier. Changing the tier clears every slot.
func (s *AssetSet) SetTier(tier Tier) {
	if tier == s.tier {
		return
	}
	s.tier = tier
	s.files = make(map[FileKind][]byte)
}

func (s *AssetSet) Put(kind FileKind, data []byte) {
	if data == nil {
		data = []byte{}
	}
	s.files[kind] = data
}

func (s *AssetSet) Get(kind FileKind) ([]byte, bool) {
	data, ok := s.files[kind]
	return data, ok
}

func (s *AssetSet) Has(kind FileKind) bool {
	_, ok := s.files[kind]
	return ok
}

func (s *AssetSet) Len() int {
	return len(s.files)
}

// Kinds returns the populated slots in canonical order.
func (s *AssetSet) Kinds() []FileKind {
	kinds := make([]FileKind, 0, len(s.files))
	for _, kind := range AllKinds {
		if s.Has(kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

func (s *AssetSet) Missing() []FileKind {
	kinds := make([]FileKind, 0)
	for _, kind := range AllKinds {
		if !s.Has(kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

func (s *AssetSet) IsComplete() bool {
	for _, kind := range AllKinds {
		if !s.Has(kind) {
			return false
		}
	}
	return true
}

// Clone copies the slot table. File contents are shared and treated as
// immutable once they are in a set.
func (s *AssetSet) Clone() *AssetSet {
	clone := NewAssetSet(s.tier)
	for kind, data := range s.files {
		clone.files[kind] = data
	}
	return clone
}

// UploadState is either "use the bundled shareware data" (None) or a set of
// files the user supplied for one tier.
type UploadState struct {
	set opt.Option[*AssetSet]
}

func NoUpload() UploadState {
	return UploadState{set: opt.None[*AssetSet]()}
}

func NewUploadState(set *AssetSet) UploadState {
	if set == nil {
		return NoUpload()
	}
	return UploadState{set: opt.Some(set)}
}

func (u UploadState) IsCustom() bool {
	return opt.IsSome(u.set)
}

// Set returns the custom set, or nil when the shareware defaults are in use.
func (u UploadState) Set() *AssetSet {
	if opt.IsNone(u.set) {
		return nil
	}
	return u.set.Value
}

// Tier is the tier the engine will be started with.
func (u UploadState) Tier() Tier {
	if opt.IsNone(u.set) {
		return Shareware
	}
	return u.set.Value.Tier()
}

// IsComplete is false for the shareware defaults: they are playable, but
// they are not a complete custom set.
func (u UploadState) IsComplete() bool {
	if opt.IsNone(u.set) {
		return false
	}
	return u.set.Value.IsComplete()
}

func (u UploadState) Clone() UploadState {
	if opt.IsNone(u.set) {
		return NoUpload()
	}
	return NewUploadState(u.set.Value.Clone())
}
