package worker

import (
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/hwade/propreel/internal/models"
	"github.com/hwade/propreel/internal/services"
)

type SlideKind int

const (
	SlideTitle SlideKind = iota
	SlidePhoto
	SlideContact
)

// SlideUnit is one planned slide. Photo slides carry the source image path;
// title and contact slides carry the overlay text lines.
type SlideUnit struct {
	Kind        SlideKind
	DurationSec int
	Lines       []services.TextLine
	PhotoID     int64
	PhotoPath   string
}

const (
	frameWidth  = 1920
	frameHeight = 1080
	frameRate   = 24

	contactSlideDurationSec = 8
	musicFadeDurSec         = 3

	musicVolumeSolo       = 0.1
	musicVolumeUnderVoice = 0.13
	narrationVolume       = 2.0
	mixOutputGain         = 2.0
)

// BuildSlidePlan lays out the full slide sequence: title card, one slide per
// photo in display order, then the contact card. Photos whose stored file is
// missing are skipped with a warning; if none remain the job cannot be
// rendered.
func BuildSlidePlan(job *models.VideoJob, photos []models.PhotoRecord, uploadDir string) ([]SlideUnit, error) {
	ordered := make([]models.PhotoRecord, len(photos))
	copy(ordered, photos)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].DisplayOrder != ordered[j].DisplayOrder {
			return ordered[i].DisplayOrder < ordered[j].DisplayOrder
		}
		return ordered[i].ID < ordered[j].ID
	})

	var photoSlides []SlideUnit
	for _, p := range ordered {
		path := filepath.Join(uploadDir, p.StoredName)
		if _, err := os.Stat(path); err != nil {
			log.Printf("[PLAN] job %d: photo %d missing at %s, skipping", job.ID, p.ID, path)
			continue
		}
		photoSlides = append(photoSlides, SlideUnit{
			Kind:        SlidePhoto,
			DurationSec: job.SlideDuration,
			PhotoID:     p.ID,
			PhotoPath:   path,
		})
	}
	if len(photoSlides) == 0 {
		return nil, models.ErrNoPhotos
	}

	plan := make([]SlideUnit, 0, len(photoSlides)+2)
	plan = append(plan, titleSlide(job))
	plan = append(plan, photoSlides...)
	plan = append(plan, contactSlide(job))
	return plan, nil
}

func titleSlide(job *models.VideoJob) SlideUnit {
	lines := []services.TextLine{
		{Text: EscapeOverlayText(StreetAddress(job)), FontFile: services.FontBold, FontSize: 72, OffsetY: -90},
	}
	if loc := CityStateZip(job); loc != "" {
		lines = append(lines, services.TextLine{
			Text: EscapeOverlayText(loc), FontFile: services.FontSans, FontSize: 48, OffsetY: 0,
		})
	}
	if job.ShowPrice {
		if price := FormatPrice(job.Price); price != "" {
			lines = append(lines, services.TextLine{
				Text: EscapeOverlayText("$" + price), FontFile: services.FontMono, FontSize: 36, OffsetY: 100,
			})
		}
	}
	return SlideUnit{Kind: SlideTitle, DurationSec: job.SlideDuration, Lines: lines}
}

// contactSlide always carries all four lines at their fixed offsets; absent
// fields become empty lines, never a reshuffled layout.
func contactSlide(job *models.VideoJob) SlideUnit {
	lines := []services.TextLine{
		{Text: EscapeOverlayText("Contact Information"), FontFile: services.FontBold, FontSize: 72, OffsetY: -150},
		{Text: EscapeOverlayText(job.ContactName), FontFile: services.FontSans, FontSize: 48, OffsetY: -30},
		{Text: EscapeOverlayText(job.ContactPhone), FontFile: services.FontSans, FontSize: 48, OffsetY: 60},
		{Text: EscapeOverlayText(job.ContactEmail), FontFile: services.FontSans, FontSize: 48, OffsetY: 150},
	}
	return SlideUnit{Kind: SlideContact, DurationSec: contactSlideDurationSec, Lines: lines}
}

// AudioMixPlan is the fully computed audio timing for a render. It is
// derived only from the slide plan and the two availability flags, so the
// same inputs always produce the same plan.
type AudioMixPlan struct {
	TotalDurationSec  int
	MusicFadeStartSec int
	MusicFadeDurSec   int
	NarrationDelayMs  int
	MusicVolume       float64
	NarrationVolume   float64
	OutputGain        float64
	HasMusic          bool
	HasNarration      bool
}

// BuildAudioMixPlan computes timing from the slide plan. The music fades out
// over the final seconds of the video, and narration is delayed so it starts
// when the first photo appears.
func BuildAudioMixPlan(slides []SlideUnit, hasMusic, hasNarration bool) AudioMixPlan {
	total := 0
	for _, s := range slides {
		total += s.DurationSec
	}

	titleDur := 0
	if len(slides) > 0 && slides[0].Kind == SlideTitle {
		titleDur = slides[0].DurationSec
	}

	plan := AudioMixPlan{
		TotalDurationSec:  total,
		MusicFadeStartSec: total - musicFadeDurSec,
		MusicFadeDurSec:   musicFadeDurSec,
		NarrationDelayMs:  titleDur * 1000,
		MusicVolume:       musicVolumeSolo,
		NarrationVolume:   narrationVolume,
		OutputGain:        mixOutputGain,
		HasMusic:          hasMusic,
		HasNarration:      hasNarration,
	}
	if hasNarration {
		plan.MusicVolume = musicVolumeUnderVoice
	}
	return plan
}
