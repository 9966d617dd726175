// Package identity выдаёт устройству анонимный псевдоним вида "{прилагательное} {существительное}".
// Псевдоним создаётся при первом обращении и хранится в devicestate до очистки хранилища.
// Уникальность не проверяется: совпадения между устройствами допустимы.
package identity

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/pribylovaa/thinkedin/internal/devicestate"
	"github.com/samber/lo"
)

var adjectives = lo.Uniq([]string{
	"Wandering", "Curious", "Silent", "Bright", "Gentle", "Mysterious", "Wise", "Playful",
	"Serene", "Bold", "Quiet", "Lively", "Dreamy", "Clever", "Peaceful", "Energetic",
	"Thoughtful", "Cheerful", "Calm", "Creative", "Friendly", "Patient", "Adventurous",
	"Kind", "Imaginative", "Warm", "Inspiring", "Hopeful", "Grateful", "Mindful",
	"Restless", "Hidden", "Vivid", "Shy", "Brave", "Fierce", "Radiant", "Shadowy",
	"Eager", "Open", "Reflective", "Blunt", "Candid", "Private",
})

var nouns = lo.Uniq([]string{
	"Owl", "Flame", "Fox", "Leaf", "Star", "River", "Mountain", "Ocean", "Forest", "Cloud",
	"Bird", "Flower", "Tree", "Moon", "Sun", "Wind", "Rain", "Snow", "Fire", "Earth", "Sky",
	"Wave", "Stone", "Crystal", "Butterfly", "Dragonfly", "Sparrow", "Rose", "Lily",
	"Pine", "Maple", "Willow", "Cedar", "Oak", "Birch", "Aspen", "Juniper",
	"Shadow", "Echo", "Mist", "Spark", "Dawn", "Dusk", "Spirit", "Muse",
})

// Generate собирает псевдоним; rnd(n) должен возвращать число в [0, n).
// nil — math/rand/v2.
func Generate(rnd func(n int) int) string {
	if rnd == nil {
		rnd = rand.IntN
	}
	return adjectives[rnd(len(adjectives))] + " " + nouns[rnd(len(nouns))]
}

// Assigner выдаёт и запоминает псевдонимы устройств.
type Assigner struct {
	devices devicestate.Provider
	rnd     func(n int) int
}

// NewAssigner создаёт Assigner поверх хранилища устройств.
func NewAssigner(devices devicestate.Provider) *Assigner {
	return &Assigner{devices: devices, rnd: rand.IntN}
}

// Pseudonym возвращает псевдоним устройства, создавая его при первом обращении.
func (a *Assigner) Pseudonym(ctx context.Context, deviceID string) (string, error) {
	const op = "identity/Pseudonym"

	st := a.devices.ForDevice(deviceID)

	name, ok, err := st.Get(ctx, devicestate.KeyPseudonym)
	if err != nil {
		return "", fmt.Errorf("%s: get: %w", op, err)
	}

	if ok && name != "" {
		return name, nil
	}

	name = Generate(a.rnd)
	if err := st.Set(ctx, devicestate.KeyPseudonym, name); err != nil {
		return "", fmt.Errorf("%s: set: %w", op, err)
	}

	return name, nil
}

// OnboardingDismissed сообщает, закрыл ли пользователь приветственный экран на устройстве.
func (a *Assigner) OnboardingDismissed(ctx context.Context, deviceID string) (bool, error) {
	v, ok, err := a.devices.ForDevice(deviceID).Get(ctx, devicestate.KeyOnboardingDismissed)
	if err != nil {
		return false, fmt.Errorf("identity/OnboardingDismissed: %w", err)
	}
	return ok && v == "true", nil
}

// DismissOnboarding запоминает, что приветственный экран закрыт.
func (a *Assigner) DismissOnboarding(ctx context.Context, deviceID string) error {
	if err := a.devices.ForDevice(deviceID).Set(ctx, devicestate.KeyOnboardingDismissed, "true"); err != nil {
		return fmt.Errorf("identity/DismissOnboarding: %w", err)
	}
	return nil
}
