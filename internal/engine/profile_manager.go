package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hippos-ai/hippos/internal/storage"
	"github.com/hippos-ai/hippos/pkg/types"
)

// defaultFactConfidence is the confidence AddFact assigns when the caller
// does not supply one.
const defaultFactConfidence = 0.7

// verifiedFactConfidence is what VerifyFact raises Confidence to once a
// fact clears the verification threshold.
const verifiedFactConfidence = 0.95

// ProfileManager owns Profile CRUD plus the fact/preference/working-hours
// mutation helpers used by ingestion and direct API calls alike.
type ProfileManager struct {
	profiles              storage.ProfileRepository
	verificationThreshold float64
}

// NewProfileManager wires a ProfileManager from its collaborator.
// verificationThreshold is the minimum confidence VerifyFact requires
// before it will mark a fact verified; values <= 0 fall back to
// defaultFactConfidence.
func NewProfileManager(profiles storage.ProfileRepository, verificationThreshold float64) *ProfileManager {
	if verificationThreshold <= 0 {
		verificationThreshold = defaultFactConfidence
	}
	return &ProfileManager{profiles: profiles, verificationThreshold: verificationThreshold}
}

// GetOrCreate returns the user's profile, creating an empty one on first
// use so callers never have to special-case a missing profile.
func (m *ProfileManager) GetOrCreate(ctx context.Context, tenantID, userID string) (*types.Profile, error) {
	if tenantID == "" || userID == "" {
		return nil, fmt.Errorf("engine: %w: tenant_id and user_id are required", types.ErrValidation)
	}

	existing, err := m.profiles.GetByUser(ctx, tenantID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	profile := &types.Profile{
		ID:        types.NewID("prof"),
		TenantID:  tenantID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// ProfileUpdates carries the basic-info fields a caller wants to change; a
// nil pointer means "leave unchanged".
type ProfileUpdates struct {
	Name               *string
	Role               *string
	Organization       *string
	Location           *string
	CommunicationStyle *string
	TechnicalLevel     *string
}

// Update applies the non-nil fields in updates to the user's profile.
func (m *ProfileManager) Update(ctx context.Context, tenantID, userID string, updates ProfileUpdates) (*types.Profile, error) {
	profile, err := m.profiles.GetByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	if updates.Name != nil {
		profile.Name = *updates.Name
	}
	if updates.Role != nil {
		profile.Role = *updates.Role
	}
	if updates.Organization != nil {
		profile.Organization = *updates.Organization
	}
	if updates.Location != nil {
		profile.Location = *updates.Location
	}
	if updates.CommunicationStyle != nil {
		profile.CommunicationStyle = *updates.CommunicationStyle
	}
	if updates.TechnicalLevel != nil {
		profile.TechnicalLevel = *updates.TechnicalLevel
	}

	profile.UpdatedAt = time.Now().UTC()
	if err := m.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// AddPreference sets a single key/value preference on the user's profile,
// overwriting any prior value for the same key.
func (m *ProfileManager) AddPreference(ctx context.Context, tenantID, userID, key string, value any) error {
	if key == "" {
		return fmt.Errorf("engine: %w: preference key is required", types.ErrValidation)
	}
	profile, err := m.profiles.GetByUser(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if profile.Preferences == nil {
		profile.Preferences = make(map[string]any)
	}
	profile.Preferences[key] = value
	profile.UpdatedAt = time.Now().UTC()
	return m.profiles.Update(ctx, profile)
}

// factCategories is the closed set of categories add_fact recognizes from
// the original service; anything else normalizes to "other".
var factCategories = map[string]struct{}{
	"personal": {}, "professional": {}, "technical": {},
	"project": {}, "communication": {}, "lifestyle": {},
}

// AddFact appends a new unverified fact to the user's profile. A
// confidence of 0 falls back to defaultFactConfidence. Facts never
// overwrite prior facts with the same text; callers that want to correct
// a fact should verify or remove it through a future dedicated call
// rather than relying on add-as-upsert.
func (m *ProfileManager) AddFact(ctx context.Context, tenantID, userID, text, category, sourceMemoryID string, confidence float64) (*types.ProfileFact, error) {
	if text == "" {
		return nil, fmt.Errorf("engine: %w: fact text is required", types.ErrValidation)
	}
	if confidence == 0 {
		confidence = defaultFactConfidence
	}
	profile, err := m.profiles.GetByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	normalized := strings.ToLower(category)
	if _, ok := factCategories[normalized]; !ok {
		normalized = "other"
	}

	fact := types.ProfileFact{
		ID:             types.NewID("fact"),
		Text:           text,
		Category:       normalized,
		SourceMemoryID: sourceMemoryID,
		Confidence:     types.ClampUnit(confidence),
		Verified:       false,
	}
	profile.Facts = append(profile.Facts, fact)
	profile.OverallConfidence = recomputeOverallConfidence(profile.Facts)
	profile.UpdatedAt = time.Now().UTC()
	if err := m.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}
	return &fact, nil
}

// VerifyFact marks a fact verified and raises its confidence to
// verifiedFactConfidence, provided the fact's current confidence already
// clears m.verificationThreshold. A fact below the threshold is left
// untouched and VerifyFact returns types.ErrValidation; callers must
// raise the fact's confidence (e.g. via repeated corroborating mentions)
// before it can be verified. Returns types.ErrNotFound if factID does
// not belong to the user's profile.
func (m *ProfileManager) VerifyFact(ctx context.Context, tenantID, userID, factID string) error {
	profile, err := m.profiles.GetByUser(ctx, tenantID, userID)
	if err != nil {
		return err
	}

	idx := -1
	for i := range profile.Facts {
		if profile.Facts[i].ID == factID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("engine: %w: fact %s not found", types.ErrNotFound, factID)
	}
	if profile.Facts[idx].Confidence < m.verificationThreshold {
		return fmt.Errorf("engine: %w: fact %s confidence %.2f is below the verification threshold %.2f",
			types.ErrValidation, factID, profile.Facts[idx].Confidence, m.verificationThreshold)
	}

	profile.Facts[idx].Verified = true
	profile.Facts[idx].Confidence = verifiedFactConfidence

	now := time.Now().UTC()
	profile.OverallConfidence = recomputeOverallConfidence(profile.Facts)
	profile.UpdatedAt = now
	profile.LastVerified = &now
	return m.profiles.Update(ctx, profile)
}

// UpdateWorkingHours replaces the user's working-hours block.
func (m *ProfileManager) UpdateWorkingHours(ctx context.Context, tenantID, userID string, hours types.WorkingHours) error {
	profile, err := m.profiles.GetByUser(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	profile.WorkingHours = &hours
	profile.UpdatedAt = time.Now().UTC()
	return m.profiles.Update(ctx, profile)
}

// AddTool appends tool to ToolsUsed if not already present.
func (m *ProfileManager) AddTool(ctx context.Context, tenantID, userID, tool string) error {
	return m.appendUniqueListField(ctx, tenantID, userID, tool, func(p *types.Profile) *[]string { return &p.ToolsUsed })
}

// AddInterest appends interest to Interests if not already present.
func (m *ProfileManager) AddInterest(ctx context.Context, tenantID, userID, interest string) error {
	return m.appendUniqueListField(ctx, tenantID, userID, interest, func(p *types.Profile) *[]string { return &p.Interests })
}

// AddCommonTask appends task to CommonTasks if not already present.
func (m *ProfileManager) AddCommonTask(ctx context.Context, tenantID, userID, task string) error {
	return m.appendUniqueListField(ctx, tenantID, userID, task, func(p *types.Profile) *[]string { return &p.CommonTasks })
}

func (m *ProfileManager) appendUniqueListField(ctx context.Context, tenantID, userID, value string, field func(*types.Profile) *[]string) error {
	if value == "" {
		return fmt.Errorf("engine: %w: value is required", types.ErrValidation)
	}
	profile, err := m.profiles.GetByUser(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	target := field(profile)
	*target = appendUnique(*target, value)
	profile.UpdatedAt = time.Now().UTC()
	return m.profiles.Update(ctx, profile)
}

// Get returns a profile by id.
func (m *ProfileManager) Get(ctx context.Context, tenantID, id string) (*types.Profile, error) {
	return m.profiles.Get(ctx, tenantID, id)
}

// Delete removes a profile outright.
func (m *ProfileManager) Delete(ctx context.Context, tenantID, id string) error {
	return m.profiles.Delete(ctx, tenantID, id)
}

// recomputeOverallConfidence is the mean confidence across all facts, 0 if
// there are none yet.
func recomputeOverallConfidence(facts []types.ProfileFact) float64 {
	if len(facts) == 0 {
		return 0
	}
	var sum float64
	for _, f := range facts {
		sum += f.Confidence
	}
	return types.ClampUnit(sum / float64(len(facts)))
}
