package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hippos-ai/hippos/internal/storage"
	"github.com/hippos-ai/hippos/pkg/types"
)

// ProfileAdapter exposes Store's profile methods as storage.ProfileRepository.
type ProfileAdapter struct{ S *Store }

var _ storage.ProfileRepository = ProfileAdapter{}

func (a ProfileAdapter) Create(ctx context.Context, p *types.Profile) error { return a.S.CreateProfile(ctx, p) }
func (a ProfileAdapter) Get(ctx context.Context, tenantID, id string) (*types.Profile, error) {
	return a.S.GetProfile(ctx, tenantID, id)
}
func (a ProfileAdapter) GetByUser(ctx context.Context, tenantID, userID string) (*types.Profile, error) {
	return a.S.GetProfileByUser(ctx, tenantID, userID)
}
func (a ProfileAdapter) Update(ctx context.Context, p *types.Profile) error { return a.S.UpdateProfile(ctx, p) }
func (a ProfileAdapter) Delete(ctx context.Context, tenantID, id string) error {
	return a.S.DeleteProfile(ctx, tenantID, id)
}

func (s *Store) CreateProfile(ctx context.Context, p *types.Profile) error {
	if p.TenantID == "" || p.ID == "" || p.UserID == "" {
		return fmt.Errorf("postgres: %w: tenant_id, id, and user_id are required", types.ErrValidation)
	}
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()

	workingHours, err := marshalWorkingHours(p.WorkingHours)
	if err != nil {
		return fmt.Errorf("postgres: %w: %v", types.ErrValidation, err)
	}
	facts, err := json.Marshal(nonNilFacts(p.Facts))
	if err != nil {
		return err
	}
	prefs, err := json.Marshal(nonNilMap(p.Preferences))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO profiles (
			id, tenant_id, user_id, name, role, organization, location, preferences,
			communication_style, technical_level, facts, interests, working_hours,
			common_tasks, tools_used, overall_confidence, last_verified, created_at,
			updated_at, version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		p.ID, p.TenantID, p.UserID, p.Name, p.Role, p.Organization, p.Location, string(prefs),
		p.CommunicationStyle, p.TechnicalLevel, string(facts), marshalStrings(p.Interests), workingHours,
		marshalStrings(p.CommonTasks), marshalStrings(p.ToolsUsed), p.OverallConfidence,
		formatTimePtr(p.LastVerified), p.CreatedAt, p.UpdatedAt, p.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("postgres: %w: profile for user %s already exists", types.ErrConflict, p.UserID)
		}
		return fmt.Errorf("postgres: creating profile: %w: %v", types.ErrBackend, err)
	}
	return nil
}

const profileSelectColumns = `SELECT
	id, tenant_id, user_id, name, role, organization, location, preferences,
	communication_style, technical_level, facts, interests, working_hours,
	common_tasks, tools_used, overall_confidence, last_verified, created_at,
	updated_at, version`

func (s *Store) GetProfile(ctx context.Context, tenantID, id string) (*types.Profile, error) {
	db, release, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	row := db.QueryRowContext(ctx, profileSelectColumns+` FROM profiles WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	return scanProfileNotFound(row, fmt.Sprintf("profile %s", id))
}

func (s *Store) GetProfileByUser(ctx context.Context, tenantID, userID string) (*types.Profile, error) {
	db, release, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	row := db.QueryRowContext(ctx, profileSelectColumns+` FROM profiles WHERE tenant_id=$1 AND user_id=$2`, tenantID, userID)
	return scanProfileNotFound(row, fmt.Sprintf("profile for user %s", userID))
}

func scanProfileNotFound(row *sql.Row, what string) (*types.Profile, error) {
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: %w: %s", types.ErrNotFound, what)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting profile: %w: %v", types.ErrBackend, err)
	}
	return p, nil
}

func (s *Store) UpdateProfile(ctx context.Context, p *types.Profile) error {
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()

	workingHours, err := marshalWorkingHours(p.WorkingHours)
	if err != nil {
		return fmt.Errorf("postgres: %w: %v", types.ErrValidation, err)
	}
	facts, err := json.Marshal(nonNilFacts(p.Facts))
	if err != nil {
		return err
	}
	prefs, err := json.Marshal(nonNilMap(p.Preferences))
	if err != nil {
		return err
	}

	newVersion := p.Version + 1
	res, err := db.ExecContext(ctx, `
		UPDATE profiles SET
			name=$1, role=$2, organization=$3, location=$4, preferences=$5, communication_style=$6,
			technical_level=$7, facts=$8, interests=$9, working_hours=$10, common_tasks=$11,
			tools_used=$12, overall_confidence=$13, last_verified=$14, updated_at=$15, version=$16
		WHERE tenant_id=$17 AND id=$18 AND version=$19`,
		p.Name, p.Role, p.Organization, p.Location, string(prefs), p.CommunicationStyle,
		p.TechnicalLevel, string(facts), marshalStrings(p.Interests), workingHours,
		marshalStrings(p.CommonTasks), marshalStrings(p.ToolsUsed), p.OverallConfidence,
		formatTimePtr(p.LastVerified), p.UpdatedAt, newVersion,
		p.TenantID, p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating profile: %w: %v", types.ErrBackend, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		if _, getErr := s.GetProfile(ctx, p.TenantID, p.ID); errors.Is(getErr, types.ErrNotFound) {
			return fmt.Errorf("postgres: %w: profile %s", types.ErrNotFound, p.ID)
		}
		return fmt.Errorf("postgres: %w: profile %s version %d is stale", types.ErrConflict, p.ID, p.Version)
	}
	p.Version = newVersion
	return nil
}

func (s *Store) DeleteProfile(ctx context.Context, tenantID, id string) error {
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()
	res, err := db.ExecContext(ctx, `DELETE FROM profiles WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting profile: %w: %v", types.ErrBackend, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("postgres: %w: profile %s", types.ErrNotFound, id)
	}
	return nil
}

func scanProfile(row *sql.Row) (*types.Profile, error) {
	var p types.Profile
	var preferences, facts, interests, commonTasks, toolsUsed string
	var workingHours sql.NullString
	var lastVerified sql.NullTime

	err := row.Scan(
		&p.ID, &p.TenantID, &p.UserID, &p.Name, &p.Role, &p.Organization, &p.Location,
		&preferences, &p.CommunicationStyle, &p.TechnicalLevel, &facts, &interests,
		&workingHours, &commonTasks, &toolsUsed, &p.OverallConfidence, &lastVerified,
		&p.CreatedAt, &p.UpdatedAt, &p.Version,
	)
	if err != nil {
		return nil, err
	}

	_ = json.Unmarshal([]byte(preferences), &p.Preferences)
	_ = json.Unmarshal([]byte(facts), &p.Facts)
	p.Interests = unmarshalStrings(interests)
	p.CommonTasks = unmarshalStrings(commonTasks)
	p.ToolsUsed = unmarshalStrings(toolsUsed)
	if workingHours.Valid && workingHours.String != "" {
		var wh types.WorkingHours
		if err := json.Unmarshal([]byte(workingHours.String), &wh); err == nil {
			p.WorkingHours = &wh
		}
	}
	if lastVerified.Valid {
		p.LastVerified = &lastVerified.Time
	}
	return &p, nil
}

func marshalWorkingHours(wh *types.WorkingHours) (any, error) {
	if wh == nil {
		return nil, nil
	}
	b, err := json.Marshal(wh)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nonNilFacts(f []types.ProfileFact) []types.ProfileFact {
	if f == nil {
		return []types.ProfileFact{}
	}
	return f
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
