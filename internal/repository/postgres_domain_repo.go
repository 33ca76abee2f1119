package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/placemirror/internal/model"
)

// PostgresDomainRepo はPostgreSQLを使用したドメインテーブルリポジトリ。
type PostgresDomainRepo struct {
	db *sql.DB
}

// NewPostgresDomainRepo はPostgresDomainRepoを生成する。
func NewPostgresDomainRepo(db *sql.DB) *PostgresDomainRepo {
	return &PostgresDomainRepo{db: db}
}

// ApplyBatch はバッチ全体を単一トランザクションで適用する。
// 子エンティティの適用前に、バッチ内で参照されている親IDをIDのみの
// プレースホルダ行として確保し、FK制約違反を防ぐ。親が後から
// フェッチされた時点でプレースホルダ行は完全な行にUPSERTされる。
func (r *PostgresDomainRepo) ApplyBatch(ctx context.Context, batch *model.IngestBatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if err := r.ensureParents(ctx, tx, batch); err != nil {
		return err
	}

	for _, u := range batch.Users {
		if err := upsertUser(ctx, tx, u); err != nil {
			return err
		}
	}
	for _, p := range batch.Posts {
		if err := upsertPost(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, c := range batch.Comments {
		if err := upsertComment(ctx, tx, c); err != nil {
			return err
		}
	}
	for _, a := range batch.Albums {
		if err := upsertAlbum(ctx, tx, a); err != nil {
			return err
		}
	}
	for _, p := range batch.Photos {
		if err := upsertPhoto(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, t := range batch.Todos {
		if err := upsertTodo(ctx, tx, t); err != nil {
			return err
		}
	}

	for _, item := range batch.Items {
		if err := insertItem(ctx, tx, item); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return nil
}

// ensureParents はバッチ内の子行が参照する親IDをプレースホルダ行として確保する。
// 既に存在する親行には何もしない。
func (r *PostgresDomainRepo) ensureParents(ctx context.Context, tx *sql.Tx, batch *model.IngestBatch) error {
	userIDs := map[int64]struct{}{}
	postIDs := map[int64]struct{}{}
	albumIDs := map[int64]struct{}{}

	for _, p := range batch.Posts {
		if p.UserID != nil {
			userIDs[*p.UserID] = struct{}{}
		}
	}
	for _, a := range batch.Albums {
		if a.UserID != nil {
			userIDs[*a.UserID] = struct{}{}
		}
	}
	for _, t := range batch.Todos {
		if t.UserID != nil {
			userIDs[*t.UserID] = struct{}{}
		}
	}
	for _, c := range batch.Comments {
		if c.PostID != nil {
			postIDs[*c.PostID] = struct{}{}
		}
	}
	for _, p := range batch.Photos {
		if p.AlbumID != nil {
			albumIDs[*p.AlbumID] = struct{}{}
		}
	}

	if err := insertPlaceholders(ctx, tx, "users", userIDs); err != nil {
		return err
	}
	if err := insertPlaceholders(ctx, tx, "posts", postIDs); err != nil {
		return err
	}
	if err := insertPlaceholders(ctx, tx, "albums", albumIDs); err != nil {
		return err
	}

	return nil
}

// insertPlaceholders は指定テーブルにIDのみのプレースホルダ行を挿入する。
func insertPlaceholders(ctx context.Context, tx *sql.Tx, table string, ids map[int64]struct{}) error {
	for id := range ids {
		_, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, table),
			id,
		)
		if err != nil {
			return fmt.Errorf("%sのプレースホルダ行の挿入に失敗しました: %w", table, err)
		}
	}
	return nil
}

func upsertUser(ctx context.Context, tx *sql.Tx, u model.User) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, name, username, email, phone, website, address, company)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		     name = EXCLUDED.name,
		     username = EXCLUDED.username,
		     email = EXCLUDED.email,
		     phone = EXCLUDED.phone,
		     website = EXCLUDED.website,
		     address = EXCLUDED.address,
		     company = EXCLUDED.company,
		     updated_at = now()`,
		u.ID, u.Name, u.Username, u.Email, u.Phone, u.Website, u.Address, u.Company,
	)
	if err != nil {
		return fmt.Errorf("ユーザーのUPSERTに失敗しました (id=%d): %w", u.ID, err)
	}
	return nil
}

func upsertPost(ctx context.Context, tx *sql.Tx, p model.Post) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, title, body)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
		     user_id = EXCLUDED.user_id,
		     title = EXCLUDED.title,
		     body = EXCLUDED.body,
		     updated_at = now()`,
		p.ID, p.UserID, p.Title, p.Body,
	)
	if err != nil {
		return fmt.Errorf("投稿のUPSERTに失敗しました (id=%d): %w", p.ID, err)
	}
	return nil
}

func upsertComment(ctx context.Context, tx *sql.Tx, c model.Comment) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO comments (id, post_id, name, email, body)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		     post_id = EXCLUDED.post_id,
		     name = EXCLUDED.name,
		     email = EXCLUDED.email,
		     body = EXCLUDED.body,
		     updated_at = now()`,
		c.ID, c.PostID, c.Name, c.Email, c.Body,
	)
	if err != nil {
		return fmt.Errorf("コメントのUPSERTに失敗しました (id=%d): %w", c.ID, err)
	}
	return nil
}

func upsertAlbum(ctx context.Context, tx *sql.Tx, a model.Album) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO albums (id, user_id, title)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET
		     user_id = EXCLUDED.user_id,
		     title = EXCLUDED.title,
		     updated_at = now()`,
		a.ID, a.UserID, a.Title,
	)
	if err != nil {
		return fmt.Errorf("アルバムのUPSERTに失敗しました (id=%d): %w", a.ID, err)
	}
	return nil
}

func upsertPhoto(ctx context.Context, tx *sql.Tx, p model.Photo) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO photos (id, album_id, title, url, thumbnail_url)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		     album_id = EXCLUDED.album_id,
		     title = EXCLUDED.title,
		     url = EXCLUDED.url,
		     thumbnail_url = EXCLUDED.thumbnail_url,
		     updated_at = now()`,
		p.ID, p.AlbumID, p.Title, p.URL, p.ThumbnailURL,
	)
	if err != nil {
		return fmt.Errorf("写真のUPSERTに失敗しました (id=%d): %w", p.ID, err)
	}
	return nil
}

func upsertTodo(ctx context.Context, tx *sql.Tx, t model.Todo) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO todos (id, user_id, title, completed)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
		     user_id = EXCLUDED.user_id,
		     title = EXCLUDED.title,
		     completed = EXCLUDED.completed,
		     updated_at = now()`,
		t.ID, t.UserID, t.Title, t.Completed,
	)
	if err != nil {
		return fmt.Errorf("TODOのUPSERTに失敗しました (id=%d): %w", t.ID, err)
	}
	return nil
}

func insertItem(ctx context.Context, tx *sql.Tx, item model.NormalizedItem) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO normalized_items
		     (endpoint, item_id, user_id, post_id, album_id, title, name,
		      email, completed, url, thumbnail_url, body, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		string(item.Endpoint), item.ItemID, item.UserID, item.PostID, item.AlbumID,
		item.Title, item.Name, item.Email, item.Completed, item.URL,
		item.ThumbnailURL, item.Body, item.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("正規化アイテムの追記に失敗しました: %w", err)
	}
	return nil
}

// ListUsers は全ユーザーをid昇順で返す。
func (r *PostgresDomainRepo) ListUsers(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, username, email, phone, website, address, company
		 FROM users ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		u := &model.User{}
		var name, username, email, phone, website, address, company sql.NullString
		if err := rows.Scan(&u.ID, &name, &username, &email, &phone, &website, &address, &company); err != nil {
			return nil, fmt.Errorf("ユーザーの読み取りに失敗しました: %w", err)
		}
		u.Name = nullStringPtr(name)
		u.Username = nullStringPtr(username)
		u.Email = nullStringPtr(email)
		u.Phone = nullStringPtr(phone)
		u.Website = nullStringPtr(website)
		u.Address = nullStringPtr(address)
		u.Company = nullStringPtr(company)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ユーザー一覧の走査に失敗しました: %w", err)
	}

	return users, nil
}

// ListPosts は投稿一覧をid昇順で返す。userIDで絞り込み可能。
func (r *PostgresDomainRepo) ListPosts(ctx context.Context, userID *int64) ([]*model.Post, error) {
	query := `SELECT id, user_id, title, body FROM posts`
	args := []any{}
	if userID != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	posts := []*model.Post{}
	for rows.Next() {
		p := &model.Post{}
		var uid sql.NullInt64
		var title, body sql.NullString
		if err := rows.Scan(&p.ID, &uid, &title, &body); err != nil {
			return nil, fmt.Errorf("投稿の読み取りに失敗しました: %w", err)
		}
		p.UserID = nullInt64Ptr(uid)
		p.Title = nullStringPtr(title)
		p.Body = nullStringPtr(body)
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("投稿一覧の走査に失敗しました: %w", err)
	}

	return posts, nil
}

// ListComments はコメント一覧をid昇順で返す。postIDで絞り込み可能。
func (r *PostgresDomainRepo) ListComments(ctx context.Context, postID *int64) ([]*model.Comment, error) {
	query := `SELECT id, post_id, name, email, body FROM comments`
	args := []any{}
	if postID != nil {
		query += ` WHERE post_id = $1`
		args = append(args, *postID)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	comments := []*model.Comment{}
	for rows.Next() {
		c := &model.Comment{}
		var pid sql.NullInt64
		var name, email, body sql.NullString
		if err := rows.Scan(&c.ID, &pid, &name, &email, &body); err != nil {
			return nil, fmt.Errorf("コメントの読み取りに失敗しました: %w", err)
		}
		c.PostID = nullInt64Ptr(pid)
		c.Name = nullStringPtr(name)
		c.Email = nullStringPtr(email)
		c.Body = nullStringPtr(body)
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("コメント一覧の走査に失敗しました: %w", err)
	}

	return comments, nil
}

// ListAlbums はアルバム一覧をid昇順で返す。userIDで絞り込み可能。
func (r *PostgresDomainRepo) ListAlbums(ctx context.Context, userID *int64) ([]*model.Album, error) {
	query := `SELECT id, user_id, title FROM albums`
	args := []any{}
	if userID != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("アルバム一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	albums := []*model.Album{}
	for rows.Next() {
		a := &model.Album{}
		var uid sql.NullInt64
		var title sql.NullString
		if err := rows.Scan(&a.ID, &uid, &title); err != nil {
			return nil, fmt.Errorf("アルバムの読み取りに失敗しました: %w", err)
		}
		a.UserID = nullInt64Ptr(uid)
		a.Title = nullStringPtr(title)
		albums = append(albums, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("アルバム一覧の走査に失敗しました: %w", err)
	}

	return albums, nil
}

// ListPhotos は写真一覧をid昇順で返す。albumIDで絞り込み可能。
func (r *PostgresDomainRepo) ListPhotos(ctx context.Context, albumID *int64) ([]*model.Photo, error) {
	query := `SELECT id, album_id, title, url, thumbnail_url FROM photos`
	args := []any{}
	if albumID != nil {
		query += ` WHERE album_id = $1`
		args = append(args, *albumID)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("写真一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	photos := []*model.Photo{}
	for rows.Next() {
		p := &model.Photo{}
		var aid sql.NullInt64
		var title, url, thumbnailURL sql.NullString
		if err := rows.Scan(&p.ID, &aid, &title, &url, &thumbnailURL); err != nil {
			return nil, fmt.Errorf("写真の読み取りに失敗しました: %w", err)
		}
		p.AlbumID = nullInt64Ptr(aid)
		p.Title = nullStringPtr(title)
		p.URL = nullStringPtr(url)
		p.ThumbnailURL = nullStringPtr(thumbnailURL)
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("写真一覧の走査に失敗しました: %w", err)
	}

	return photos, nil
}

// ListTodos はTODO一覧をid昇順で返す。userIDとcompletedで絞り込み可能。
func (r *PostgresDomainRepo) ListTodos(ctx context.Context, userID *int64, completed *bool) ([]*model.Todo, error) {
	query := `SELECT id, user_id, title, completed FROM todos`
	conds := []string{}
	args := []any{}
	if userID != nil {
		args = append(args, *userID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if completed != nil {
		args = append(args, *completed)
		conds = append(conds, fmt.Sprintf("completed = $%d", len(args)))
	}
	for i, cond := range conds {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("TODO一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	todos := []*model.Todo{}
	for rows.Next() {
		t := &model.Todo{}
		var uid sql.NullInt64
		var title sql.NullString
		var done sql.NullBool
		if err := rows.Scan(&t.ID, &uid, &title, &done); err != nil {
			return nil, fmt.Errorf("TODOの読み取りに失敗しました: %w", err)
		}
		t.UserID = nullInt64Ptr(uid)
		t.Title = nullStringPtr(title)
		t.Completed = nullBoolPtr(done)
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("TODO一覧の走査に失敗しました: %w", err)
	}

	return todos, nil
}
