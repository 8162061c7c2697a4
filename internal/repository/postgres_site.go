package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/fv-bodegones/storefront-service/internal/apperrors"
	"github.com/fv-bodegones/storefront-service/internal/logging"
	"github.com/fv-bodegones/storefront-service/internal/models"
	"github.com/google/uuid"
)

const sponsorColumns = `id, name, logo_url, website_url, enabled, display_order, created_at`

// PostgresSiteRepository stores site settings and sponsors.
type PostgresSiteRepository struct {
	db     *sql.DB
	logger *logging.Logger
	now    func() time.Time
}

func NewPostgresSiteRepository(db *sql.DB) *PostgresSiteRepository {
	return &PostgresSiteRepository{
		db:     db,
		logger: logging.NewLogger("site-repository"),
		now:    time.Now,
	}
}

func (r *PostgresSiteRepository) GetSettings(ctx context.Context) (*models.SiteSettings, error) {
	var s models.SiteSettings
	var whatsapp sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT id, site_name, site_description, contact_phone, contact_email,
		       contact_address, whatsapp_number, tax_percentage, updated_at
		FROM site_settings
		ORDER BY updated_at DESC
		LIMIT 1`,
	).Scan(
		&s.ID,
		&s.SiteName,
		&s.SiteDescription,
		&s.ContactPhone,
		&s.ContactEmail,
		&s.ContactAddress,
		&whatsapp,
		&s.TaxPercentage,
		&s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s.WhatsAppNumber = whatsapp.String
	return &s, nil
}

// SaveSettings inserts the settings row on first save and updates it after.
func (r *PostgresSiteRepository) SaveSettings(ctx context.Context, s *models.SiteSettings) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.UpdatedAt = r.now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO site_settings (
			id, site_name, site_description, contact_phone, contact_email,
			contact_address, whatsapp_number, tax_percentage, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			site_name = EXCLUDED.site_name,
			site_description = EXCLUDED.site_description,
			contact_phone = EXCLUDED.contact_phone,
			contact_email = EXCLUDED.contact_email,
			contact_address = EXCLUDED.contact_address,
			whatsapp_number = EXCLUDED.whatsapp_number,
			tax_percentage = EXCLUDED.tax_percentage,
			updated_at = EXCLUDED.updated_at`,
		s.ID,
		s.SiteName,
		s.SiteDescription,
		s.ContactPhone,
		s.ContactEmail,
		s.ContactAddress,
		nullString(s.WhatsAppNumber),
		s.TaxPercentage,
		s.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save site settings", logging.Fields{"error": err.Error()})
		return err
	}

	r.logger.Info("Site settings saved", logging.Fields{
		"settings_id":    s.ID,
		"tax_percentage": s.TaxPercentage.String(),
	})
	return nil
}

func (r *PostgresSiteRepository) ListSponsors(ctx context.Context, enabledOnly bool) ([]*models.Sponsor, error) {
	query := `SELECT ` + sponsorColumns + ` FROM sponsors`
	if enabledOnly {
		query += ` WHERE enabled = TRUE`
	}
	query += ` ORDER BY display_order, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sponsors := make([]*models.Sponsor, 0)
	for rows.Next() {
		s, err := scanSponsor(rows)
		if err != nil {
			return nil, err
		}
		sponsors = append(sponsors, s)
	}
	return sponsors, rows.Err()
}

func (r *PostgresSiteRepository) GetSponsor(ctx context.Context, id string) (*models.Sponsor, error) {
	s, err := scanSponsor(r.db.QueryRowContext(ctx, `SELECT `+sponsorColumns+` FROM sponsors WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	return s, err
}

func (r *PostgresSiteRepository) CreateSponsor(ctx context.Context, s *models.Sponsor) error {
	s.ID = uuid.NewString()
	s.CreatedAt = r.now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sponsors (id, name, logo_url, website_url, enabled, display_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.Name, nullString(s.LogoURL), nullString(s.WebsiteURL), s.Enabled, s.DisplayOrder, s.CreatedAt,
	)
	return err
}

func (r *PostgresSiteRepository) UpdateSponsor(ctx context.Context, s *models.Sponsor) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sponsors SET name = $2, logo_url = $3, website_url = $4, enabled = $5, display_order = $6
		WHERE id = $1`,
		s.ID, s.Name, nullString(s.LogoURL), nullString(s.WebsiteURL), s.Enabled, s.DisplayOrder,
	)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *PostgresSiteRepository) DeleteSponsor(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sponsors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func scanSponsor(row rowScanner) (*models.Sponsor, error) {
	var s models.Sponsor
	var logo, website sql.NullString
	if err := row.Scan(&s.ID, &s.Name, &logo, &website, &s.Enabled, &s.DisplayOrder, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.LogoURL = logo.String
	s.WebsiteURL = website.String
	return &s, nil
}
