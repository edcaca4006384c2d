package clipmodel

import (
	"sort"

	"github.com/nomadaudio/engine/pkg/uuid"
)

// Lane is a playlist lane (a.k.a. track row): an ordered list of clips plus
// the per-lane mix parameters the engine reads through TrackRenderState.
// TrackID is a stable numeric identity kept alongside the lane's UUID;
// TrackIndex is the compact, 0-based ordering that changes when lanes are
// reordered.
type Lane struct {
	ID    uuid.ID
	Name  string
	Color uint32

	TrackID    uint64
	TrackIndex int

	Volume float64 // 0..2
	Pan    float64 // -1..+1
	Mute   bool
	Solo   bool

	IsSystemLane bool

	clips []*AudioClip

	// LegacyClip is a single clip directly owned by the lane, the shape of
	// project files from before lanes held multiple clips. No code in this
	// module sets or reads it; the RT render path uses only the lane's clips.
	// Ported from PlaylistTrack's single-clip backward-compatibility path.
	LegacyClip *AudioClip
}

// NewLane constructs an empty lane with default volume 1.0 and centered pan.
func NewLane(name string, trackID uint64, trackIndex int) *Lane {
	return &Lane{
		ID:         uuid.New(),
		Name:       name,
		TrackID:    trackID,
		TrackIndex: trackIndex,
		Volume:     1.0,
	}
}

// AddClip inserts clip into the lane, retaining a reference, and keeps the
// lane sorted by timeline start (insertion order breaks ties).
func (l *Lane) AddClip(clip *AudioClip) {
	clip.Retain()
	l.clips = append(l.clips, clip)
	l.sortClips()
}

// RemoveClip drops the lane's reference to the clip with the given ID.
// Reports whether a clip was found and removed.
func (l *Lane) RemoveClip(id uuid.ID) bool {
	for i, c := range l.clips {
		if c.ID == id {
			l.clips = append(l.clips[:i], l.clips[i+1:]...)
			c.Release()
			return true
		}
	}
	return false
}

// Clips returns the lane's clips in sorted (start-time, then insertion)
// order. The returned slice is owned by the lane; callers must not retain
// it across further mutation.
func (l *Lane) Clips() []*AudioClip {
	return l.clips
}

// ClipByID returns the clip with the given ID, or ErrClipNotFound.
func (l *Lane) ClipByID(id uuid.ID) (*AudioClip, error) {
	for _, c := range l.clips {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, ErrClipNotFound
}

// ClipAtPosition returns the first clip (in lane order) whose timeline span
// contains t, or ErrClipNotFound if none does. Overlapping clips are
// allowed by the data model, so this returns the earliest match in lane
// order, not necessarily the "topmost".
func (l *Lane) ClipAtPosition(t float64) (*AudioClip, error) {
	for _, c := range l.clips {
		if t >= c.TimelineStart && t < c.EndTime() {
			return c, nil
		}
	}
	return nil, ErrClipNotFound
}

// SplitClipAt finds the clip with the given ID and splits it at timeline
// position t, replacing it in place with the two resulting halves. Returns
// ErrClipNotFound if no such clip exists, or ErrInvalidSplit if t is not
// strictly inside the clip's span (the original is left unchanged either
// way).
func (l *Lane) SplitClipAt(id uuid.ID, t float64) error {
	idx := -1
	for i, c := range l.clips {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrClipNotFound
	}

	target := l.clips[idx]
	left, right, err := target.SplitAt(t)
	if err != nil {
		return err
	}

	left.Retain()
	right.Retain()
	replacement := append([]*AudioClip{left, right}, l.clips[idx+1:]...)
	l.clips = append(l.clips[:idx], replacement...)
	target.Release()

	l.sortClips()
	return nil
}

func (l *Lane) sortClips() {
	sort.SliceStable(l.clips, func(i, j int) bool {
		return l.clips[i].TimelineStart < l.clips[j].TimelineStart
	})
}
