package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/signvision/internal/gesture"
	"github.com/ayusman/signvision/internal/sign"
	"github.com/ayusman/signvision/internal/store"
)

var (
	// ErrUnknownSign is returned for a sign outside the classifier vocabulary.
	ErrUnknownSign = errors.New("sign is not in the classifier vocabulary")

	// ErrNoStore is returned by training operations when no store is configured.
	ErrNoStore = errors.New("no store configured")

	// ErrInvalidSample is returned for a recorded sample that cannot be parsed.
	ErrInvalidSample = errors.New("invalid sample")
)

// TrainResult describes a rebuilt template.
type TrainResult struct {
	Sign    string `json:"sign"`
	Samples int    `json:"samples"`
	Frames  int    `json:"frames"`
}

// ResolveSign maps a sign name onto its vocabulary label. Without a
// vocabulary the normalized name is used.
func (a *App) ResolveSign(name string) (string, error) {
	key := sign.Normalize(name)
	if key == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownSign, name)
	}
	if len(a.vocab) == 0 {
		return key, nil
	}
	for _, label := range a.vocab {
		if sign.Normalize(label) == key {
			return label, nil
		}
	}
	if guess, ok := sign.Suggest(name, a.vocab); ok {
		return "", fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownSign, name, guess)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSign, name)
}

// TrainSign stores recorded samples for a sign and rebuilds its template
// from every sample recorded so far.
func (a *App) TrainSign(name string, samples []json.RawMessage) (TrainResult, error) {
	if a.store == nil {
		return TrainResult{}, ErrNoStore
	}
	if len(samples) == 0 {
		return TrainResult{}, fmt.Errorf("%w: no samples provided", ErrInvalidSample)
	}
	label, err := a.ResolveSign(name)
	if err != nil {
		return TrainResult{}, err
	}
	for i, raw := range samples {
		if _, err := gesture.ParseSequence(raw); err != nil {
			return TrainResult{}, fmt.Errorf("%w %d: %v", ErrInvalidSample, i, err)
		}
	}

	total, err := a.store.Samples().Create(label, samples)
	if err != nil {
		return TrainResult{}, fmt.Errorf("store samples: %w", err)
	}

	stored, err := a.store.Samples().GetBySign(label)
	if err != nil {
		return TrainResult{}, fmt.Errorf("load samples: %w", err)
	}
	all := make([]json.RawMessage, len(stored))
	for i, s := range stored {
		all[i] = s.Data
	}

	frames, err := gesture.NewTrainer().TrainSequences(all)
	if err != nil {
		return TrainResult{}, fmt.Errorf("train %q: %w", label, err)
	}
	data, err := gesture.EncodeSequence(frames, time.Now().UnixMilli())
	if err != nil {
		return TrainResult{}, err
	}
	if err := a.store.Templates().Save(&store.Template{Sign: label, Frames: data, Samples: total}); err != nil {
		return TrainResult{}, fmt.Errorf("save template: %w", err)
	}

	if a.templates != nil {
		if err := a.templates.AddTemplate(gesture.Template{Label: label, Frames: frames}); err != nil {
			return TrainResult{}, err
		}
	}

	a.log.Info("template trained", "sign", label, "samples", total)
	return TrainResult{Sign: label, Samples: total, Frames: len(frames)}, nil
}

// Samples returns the recorded samples for a sign.
func (a *App) Samples(name string) ([]store.Sample, error) {
	if a.store == nil {
		return nil, ErrNoStore
	}
	label, err := a.ResolveSign(name)
	if err != nil {
		return nil, err
	}
	return a.store.Samples().GetBySign(label)
}

// DeleteSamples removes the samples and template of a sign.
func (a *App) DeleteSamples(name string) error {
	if a.store == nil {
		return ErrNoStore
	}
	label, err := a.ResolveSign(name)
	if err != nil {
		return err
	}
	if err := a.store.Samples().DeleteBySign(label); err != nil {
		return err
	}
	if err := a.store.Templates().Delete(label); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if a.templates != nil {
		a.templates.RemoveTemplate(label)
	}
	return nil
}

// LoadTemplates loads stored templates into the template model. Templates
// for labels outside the vocabulary are skipped.
func (a *App) LoadTemplates() error {
	if a.store == nil || a.templates == nil {
		return nil
	}

	stored, err := a.store.Templates().List()
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}

	loaded := 0
	for _, t := range stored {
		if a.vocab.Index(t.Sign) < 0 {
			continue
		}
		frames, err := gesture.ParseSequence(t.Frames)
		if err != nil {
			a.log.Warn("failed to load template", "sign", t.Sign, "err", err)
			continue
		}
		if err := a.templates.AddTemplate(gesture.Template{Label: t.Sign, Frames: frames}); err != nil {
			a.log.Warn("failed to load template", "sign", t.Sign, "err", err)
			continue
		}
		loaded++
	}

	a.log.Info("loaded templates from database", "count", loaded)
	return nil
}
