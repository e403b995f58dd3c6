package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ProductRepository is defined by its consumers (catalog service and the
// selection lookup path), not by the SQLite implementation.
type ProductRepository interface {
	GetAll(ctx context.Context, includeUnpublished bool) ([]*Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	SetPublished(ctx context.Context, id string, published bool) error
	Close() error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

const productColumns = `
	id, title, slug, world, category, price_id,
	short_description, description, content_url, preview_image,
	tags, file_types, is_published, created_at, updated_at
`

func (r *Repository) GetAll(ctx context.Context, includeUnpublished bool) ([]*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if !includeUnpublished {
		query += ` WHERE is_published = 1`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
}

func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE slug = ?`, slug)
}

func (r *Repository) getOne(ctx context.Context, query, arg string) (*Product, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	tags, fileTypes, err := encodeLists(p)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, title, slug, world, category, price_id,
			short_description, description, content_url, preview_image,
			tags, file_types, is_published, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Slug, p.World, p.Category, p.PriceID,
		p.ShortDescription, p.Description, p.ContentURL, p.PreviewImage,
		tags, fileTypes, p.Published, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()

	tags, fileTypes, err := encodeLists(p)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE products SET
			title = ?, slug = ?, world = ?, category = ?, price_id = ?,
			short_description = ?, description = ?, content_url = ?, preview_image = ?,
			tags = ?, file_types = ?, is_published = ?, updated_at = ?
		WHERE id = ?`,
		p.Title, p.Slug, p.World, p.Category, p.PriceID,
		p.ShortDescription, p.Description, p.ContentURL, p.PreviewImage,
		tags, fileTypes, p.Published, p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return checkAffected(result)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return checkAffected(result)
}

func (r *Repository) SetPublished(ctx context.Context, id string, published bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET is_published = ?, updated_at = ? WHERE id = ?`,
		published, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update publish state: %w", err)
	}
	return checkAffected(result)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func encodeLists(p *Product) (tags string, fileTypes string, err error) {
	tagsJSON, err := json.Marshal(p.Tags)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode tags: %w", err)
	}
	typesJSON, err := json.Marshal(p.FileTypes)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode file types: %w", err)
	}
	return string(tagsJSON), string(typesJSON), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*Product, error) {
	p := &Product{}
	var tags, fileTypes string
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.World, &p.Category, &p.PriceID,
		&p.ShortDescription, &p.Description, &p.ContentURL, &p.PreviewImage,
		&tags, &fileTypes, &p.Published, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(fileTypes), &p.FileTypes); err != nil {
		return nil, fmt.Errorf("failed to decode file types: %w", err)
	}
	return p, nil
}
