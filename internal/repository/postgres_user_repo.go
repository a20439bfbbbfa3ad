package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/relateai/relateai/internal/model"
)

// userColumns はusersテーブルのSELECT/RETURNING対象カラム。scanUserと順序を揃える。
const userColumns = `id, email, first_name, last_name, profile_image_url,
	phone_number, age, age_mode, theme, age_handling_enabled, age_handling_passcode,
	created_at, updated_at`

// qualifiedUserColumns はusersをuでエイリアスしたJOIN用のカラム列。
const qualifiedUserColumns = `u.id, u.email, u.first_name, u.last_name, u.profile_image_url,
	u.phone_number, u.age, u.age_mode, u.theme, u.age_handling_enabled, u.age_handling_passcode,
	u.created_at, u.updated_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
func (r *PostgresUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if user.AgeMode == "" {
		user.AgeMode = model.AgeModeAdult
	}
	if user.Theme == "" {
		user.Theme = model.ThemeAuto
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, first_name, last_name, profile_image_url, age_mode, theme, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Email, user.FirstName, user.LastName, user.ProfileImageURL,
		string(user.AgeMode), string(user.Theme), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, user_id, provider, provider_user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		identity.ID, identity.UserID, identity.Provider, identity.ProviderUserID, identity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateIdentityFields はIdP由来の属性を上書きする。見つからない場合はnilを返す。
func (r *PostgresUserRepo) UpdateIdentityFields(ctx context.Context, id string, fields IdentityFields) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users
		 SET email = $2, first_name = $3, last_name = $4, profile_image_url = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, fields.Email, fields.FirstName, fields.LastName, fields.ProfileImageURL,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update identity fields: %w", err)
	}
	return user, nil
}

// UpdateProfile はプロフィールを部分更新する。nilの項目はCOALESCEで既存値を維持する。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate, ageMode *model.AgeMode) (*model.User, error) {
	var mode *string
	if ageMode != nil {
		s := string(*ageMode)
		mode = &s
	}

	user, err := scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users
		 SET first_name   = COALESCE($2, first_name),
		     last_name    = COALESCE($3, last_name),
		     phone_number = COALESCE($4, phone_number),
		     age          = COALESCE($5, age),
		     age_mode     = COALESCE($6, age_mode),
		     updated_at   = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, update.FirstName, update.LastName, update.PhoneNumber, update.Age, mode,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// UpdateSettings は設定を部分更新する。nilの項目はCOALESCEで既存値を維持する。
// パスコードの書き込みはWHERE句で未設定の行に限定し、同時設定では一方のみが成功する。
func (r *PostgresUserRepo) UpdateSettings(ctx context.Context, id string, update model.SettingsUpdate) (*model.User, error) {
	var theme *string
	if update.Theme != nil {
		s := string(*update.Theme)
		theme = &s
	}

	user, err := scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users
		 SET theme                 = COALESCE($2, theme),
		     age_handling_enabled  = COALESCE($3, age_handling_enabled),
		     age_handling_passcode = COALESCE($4::varchar, age_handling_passcode),
		     updated_at            = now()
		 WHERE id = $1
		   AND ($4::varchar IS NULL OR age_handling_passcode IS NULL OR age_handling_passcode = '')
		 RETURNING `+userColumns,
		id, theme, update.AgeHandlingEnabled, update.PasscodeHash,
	))
	if err == sql.ErrNoRows {
		if update.PasscodeHash == nil {
			return nil, nil
		}
		return nil, r.passcodeConflict(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return user, nil
}

// passcodeConflict はパスコード付き更新が0行だった理由を判定する。
// ユーザーが存在すればErrPasscodeAlreadySet、存在しなければnilを返す。
func (r *PostgresUserRepo) passcodeConflict(ctx context.Context, id string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check user existence: %w", err)
	}
	if exists {
		return ErrPasscodeAlreadySet
	}
	return nil
}

// scanUser はuserColumnsの順序で1行を読み取る。
func scanUser(row rowScanner) (*model.User, error) {
	var (
		u                                 model.User
		email, firstName, lastName, image sql.NullString
		phone, passcode                   sql.NullString
		age                               sql.NullInt64
		ageMode, theme                    string
	)

	err := row.Scan(
		&u.ID, &email, &firstName, &lastName, &image,
		&phone, &age, &ageMode, &theme, &u.AgeHandlingEnabled, &passcode,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Email = nullStringPtr(email)
	u.FirstName = nullStringPtr(firstName)
	u.LastName = nullStringPtr(lastName)
	u.ProfileImageURL = nullStringPtr(image)
	u.PhoneNumber = nullStringPtr(phone)
	u.AgeHandlingPasscodeHash = nullStringPtr(passcode)
	if age.Valid {
		a := int(age.Int64)
		u.Age = &a
	}
	u.AgeMode = model.AgeMode(ageMode)
	u.Theme = model.Theme(theme)

	return &u, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
