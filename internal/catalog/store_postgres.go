package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// PostgresStore reads the catalog tables. Content is managed out of band
// (migrations, admin tooling), so this store is read-only.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const serviceColumns = `id, slug, title, short_description, full_description,
	features, base_price_usd, duration, category, icon, faqs`

func (s *PostgresStore) ListServices(ctx context.Context) ([]Service, error) {
	query := fmt.Sprintf(`SELECT %s FROM services ORDER BY title`, serviceColumns)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, *svc)
	}
	return services, rows.Err()
}

func (s *PostgresStore) GetService(ctx context.Context, slug string) (*Service, error) {
	query := fmt.Sprintf(`SELECT %s FROM services WHERE slug = $1`, serviceColumns)

	svc, err := scanService(s.db.QueryRowContext(ctx, query, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	return svc, nil
}

const postColumns = `id, slug, title, excerpt, content_html, category,
	tags, author_name, published_at, read_time`

func (s *PostgresStore) ListPosts(ctx context.Context, filter PostFilter) ([]BlogPost, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultPostLimit
	}
	if limit > MaxPostLimit {
		limit = MaxPostLimit
	}

	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Category != "" {
		conditions = append(conditions, "category = "+arg(filter.Category))
	}
	if filter.Query != "" {
		pattern := arg("%" + filter.Query + "%")
		conditions = append(conditions, fmt.Sprintf("(title ILIKE %s OR excerpt ILIKE %s)", pattern, pattern))
	}

	query := fmt.Sprintf(`SELECT %s FROM blog_posts`, postColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY published_at DESC LIMIT " + arg(limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list blog posts: %w", err)
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blog post: %w", err)
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func (s *PostgresStore) GetPost(ctx context.Context, slug string) (*BlogPost, error) {
	query := fmt.Sprintf(`SELECT %s FROM blog_posts WHERE slug = $1`, postColumns)

	post, err := scanPost(s.db.QueryRowContext(ctx, query, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blog post: %w", err)
	}
	return post, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanService(row rowScanner) (*Service, error) {
	var (
		svc      Service
		faqsJSON []byte
	)
	err := row.Scan(
		&svc.ID,
		&svc.Slug,
		&svc.Title,
		&svc.ShortDescription,
		&svc.FullDescription,
		pq.Array(&svc.Features),
		&svc.BasePriceUSD,
		&svc.Duration,
		&svc.Category,
		&svc.Icon,
		&faqsJSON,
	)
	if err != nil {
		return nil, err
	}
	if len(faqsJSON) > 0 {
		if err := json.Unmarshal(faqsJSON, &svc.FAQs); err != nil {
			return nil, fmt.Errorf("decode faqs: %w", err)
		}
	}
	return &svc, nil
}

func scanPost(row rowScanner) (*BlogPost, error) {
	var post BlogPost
	err := row.Scan(
		&post.ID,
		&post.Slug,
		&post.Title,
		&post.Excerpt,
		&post.ContentHTML,
		&post.Category,
		pq.Array(&post.Tags),
		&post.AuthorName,
		&post.PublishedAt,
		&post.ReadTime,
	)
	if err != nil {
		return nil, err
	}
	return &post, nil
}
