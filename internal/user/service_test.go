package user

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/relateai/relateai/internal/model"
	"github.com/relateai/relateai/internal/repository"
	"github.com/relateai/relateai/internal/security"
)

// --- モック ---

// memUserRepo はusersテーブルを模したインメモリ実装。
// COALESCEによる部分更新の挙動を再現する。
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User

	updateProfileCalls  int
	updateSettingsCalls int
	findByIDFn          func(ctx context.Context, id string) (*model.User, error)
}

func newMemUserRepo(users ...*model.User) *memUserRepo {
	m := &memUserRepo{users: map[string]*model.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	m.users[user.ID] = user
	return nil
}

func (m *memUserRepo) UpdateIdentityFields(ctx context.Context, id string, fields repository.IdentityFields) (*model.User, error) {
	return m.FindByID(ctx, id)
}

func (m *memUserRepo) UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate, ageMode *model.AgeMode) (*model.User, error) {
	m.updateProfileCalls++
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	if update.FirstName != nil {
		u.FirstName = update.FirstName
	}
	if update.LastName != nil {
		u.LastName = update.LastName
	}
	if update.PhoneNumber != nil {
		u.PhoneNumber = update.PhoneNumber
	}
	if update.Age != nil {
		u.Age = update.Age
	}
	if ageMode != nil {
		u.AgeMode = *ageMode
	}
	cp := *u
	return &cp, nil
}

// UpdateSettings はパスコード未設定の行にのみパスコードを書き込む条件付き更新を再現する。
func (m *memUserRepo) UpdateSettings(ctx context.Context, id string, update model.SettingsUpdate) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateSettingsCalls++
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	if update.PasscodeHash != nil && u.HasPasscode() {
		return nil, repository.ErrPasscodeAlreadySet
	}
	if update.Theme != nil {
		u.Theme = *update.Theme
	}
	if update.AgeHandlingEnabled != nil {
		u.AgeHandlingEnabled = *update.AgeHandlingEnabled
	}
	if update.PasscodeHash != nil {
		u.AgeHandlingPasscodeHash = update.PasscodeHash
	}
	cp := *u
	return &cp, nil
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func newTestUser() *model.User {
	return &model.User{
		ID:        "user-1",
		Email:     strPtr("taro@example.com"),
		FirstName: strPtr("Taro"),
		AgeMode:   model.AgeModeAdult,
		Theme:     model.ThemeAuto,
	}
}

func newTestService(repo repository.UserRepository) *Service {
	return NewService(repo, security.NewPasscodeHasher(bcrypt.MinCost), security.NewTextSanitizer())
}

// assertAPIErrorCode はerrが指定コードのAPIErrorであることを検証する。
func assertAPIErrorCode(t *testing.T, err error, code string) *model.APIError {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != code {
		t.Fatalf("error code = %q, want %q", apiErr.Code, code)
	}
	return apiErr
}

// --- UpdateProfile ---

// 年齢の設定でage_modeが再計算されること
func TestService_UpdateProfile_RecomputesAgeMode(t *testing.T) {
	tests := []struct {
		age  int
		want model.AgeMode
	}{
		{13, model.AgeModeTeen},
		{17, model.AgeModeTeen},
		{18, model.AgeModeAdult},
		{120, model.AgeModeAdult},
	}
	for _, tt := range tests {
		repo := newMemUserRepo(newTestUser())
		svc := newTestService(repo)

		got, err := svc.UpdateProfile(context.Background(), "user-1", model.ProfileUpdate{Age: intPtr(tt.age)})
		if err != nil {
			t.Fatalf("UpdateProfile(age=%d) error = %v", tt.age, err)
		}
		if got.AgeMode != tt.want {
			t.Errorf("age=%d: AgeMode = %q, want %q", tt.age, got.AgeMode, tt.want)
		}
	}
}

// 年齢を指定しない更新ではage_modeが変わらないこと
func TestService_UpdateProfile_WithoutAgeKeepsAgeMode(t *testing.T) {
	u := newTestUser()
	u.Age = intPtr(15)
	u.AgeMode = model.AgeModeTeen
	repo := newMemUserRepo(u)
	svc := newTestService(repo)

	got, err := svc.UpdateProfile(context.Background(), "user-1", model.ProfileUpdate{LastName: strPtr("Yamada")})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if got.AgeMode != model.AgeModeTeen {
		t.Errorf("AgeMode = %q, want teen", got.AgeMode)
	}
	if got.LastName == nil || *got.LastName != "Yamada" {
		t.Errorf("LastName = %v, want Yamada", got.LastName)
	}
}

// 範囲外の年齢は拒否され、何も保存されないこと
func TestService_UpdateProfile_InvalidAge(t *testing.T) {
	for _, age := range []int{0, 12, 121, -1} {
		repo := newMemUserRepo(newTestUser())
		svc := newTestService(repo)

		_, err := svc.UpdateProfile(context.Background(), "user-1", model.ProfileUpdate{Age: intPtr(age)})
		apiErr := assertAPIErrorCode(t, err, model.ErrCodeValidation)
		if len(apiErr.Fields) != 1 || apiErr.Fields[0].Field != "age" {
			t.Errorf("age=%d: Fields = %+v", age, apiErr.Fields)
		}
		if repo.updateProfileCalls != 0 {
			t.Errorf("age=%d: UpdateProfile should not be called", age)
		}
	}
}

// 短い電話番号は拒否され、レコードが変更されないこと
func TestService_UpdateProfile_InvalidPhoneLeavesRecordUnchanged(t *testing.T) {
	u := newTestUser()
	u.PhoneNumber = strPtr("0312345678")
	repo := newMemUserRepo(u)
	svc := newTestService(repo)

	_, err := svc.UpdateProfile(context.Background(), "user-1", model.ProfileUpdate{
		PhoneNumber: strPtr("12345"),
		FirstName:   strPtr("Changed"),
	})
	apiErr := assertAPIErrorCode(t, err, model.ErrCodeValidation)
	if apiErr.Fields[0].Field != "phoneNumber" {
		t.Errorf("Fields = %+v", apiErr.Fields)
	}

	stored := repo.users["user-1"]
	if *stored.PhoneNumber != "0312345678" || *stored.FirstName != "Taro" {
		t.Errorf("record changed: phone=%s first=%s", *stored.PhoneNumber, *stored.FirstName)
	}
}

// 複数の違反が項目単位でまとめて返されること
func TestService_UpdateProfile_MultipleFieldErrors(t *testing.T) {
	svc := newTestService(newMemUserRepo(newTestUser()))

	_, err := svc.UpdateProfile(context.Background(), "user-1", model.ProfileUpdate{
		PhoneNumber: strPtr("1"),
		Age:         intPtr(5),
	})
	apiErr := assertAPIErrorCode(t, err, model.ErrCodeValidation)
	if len(apiErr.Fields) != 2 {
		t.Errorf("len(Fields) = %d, want 2", len(apiErr.Fields))
	}
}

// 氏名からマークアップが除去されること
// カラム長を超える値はDBに到達する前に項目エラーとなること
func TestService_UpdateProfile_MaxLengths(t *testing.T) {
	tests := []struct {
		name   string
		update model.ProfileUpdate
		field  string
	}{
		{"電話番号33文字", model.ProfileUpdate{PhoneNumber: strPtr(strings.Repeat("1", 33))}, "phoneNumber"},
		{"名256文字", model.ProfileUpdate{FirstName: strPtr(strings.Repeat("a", 256))}, "firstName"},
		{"姓256文字", model.ProfileUpdate{LastName: strPtr(strings.Repeat("山", 256))}, "lastName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemUserRepo(newTestUser())
			svc := newTestService(repo)

			_, err := svc.UpdateProfile(context.Background(), "user-1", tt.update)
			apiErr := assertAPIErrorCode(t, err, model.ErrCodeValidation)
			if len(apiErr.Fields) != 1 || apiErr.Fields[0].Field != tt.field {
				t.Errorf("Fields = %+v, want %s", apiErr.Fields, tt.field)
			}
			if repo.updateProfileCalls != 0 {
				t.Error("UpdateProfile should not be called")
			}
		})
	}
}

// 上限ちょうどの値は受け付けること
func TestService_UpdateProfile_AtMaxLengths(t *testing.T) {
	repo := newMemUserRepo(newTestUser())
	svc := newTestService(repo)

	_, err := svc.UpdateProfile(context.Background(), "user-1", model.ProfileUpdate{
		PhoneNumber: strPtr(strings.Repeat("1", 32)),
		FirstName:   strPtr(strings.Repeat("a", 255)),
		LastName:    strPtr(strings.Repeat("山", 255)),
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
}

func TestService_UpdateProfile_SanitizesNames(t *testing.T) {
	svc := newTestService(newMemUserRepo(newTestUser()))

	got, err := svc.UpdateProfile(context.Background(), "user-1", model.ProfileUpdate{
		FirstName: strPtr("<script>x</script>Hanako"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if *got.FirstName != "Hanako" {
		t.Errorf("FirstName = %q, want Hanako", *got.FirstName)
	}
}

func TestService_UpdateProfile_UserNotFound(t *testing.T) {
	svc := newTestService(newMemUserRepo())
	_, err := svc.UpdateProfile(context.Background(), "missing", model.ProfileUpdate{Age: intPtr(20)})
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

// --- UpdateSettings ---

func TestService_UpdateSettings_Theme(t *testing.T) {
	repo := newMemUserRepo(newTestUser())
	svc := newTestService(repo)

	got, err := svc.UpdateSettings(context.Background(), "user-1", SettingsInput{Theme: strPtr("gray")})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if got.Theme != model.ThemeGray {
		t.Errorf("Theme = %q, want gray", got.Theme)
	}
}

func TestService_UpdateSettings_InvalidTheme(t *testing.T) {
	repo := newMemUserRepo(newTestUser())
	svc := newTestService(repo)

	_, err := svc.UpdateSettings(context.Background(), "user-1", SettingsInput{Theme: strPtr("purple")})
	apiErr := assertAPIErrorCode(t, err, model.ErrCodeValidation)
	if apiErr.Fields[0].Field != "theme" {
		t.Errorf("Fields = %+v", apiErr.Fields)
	}
	if repo.updateSettingsCalls != 0 {
		t.Error("UpdateSettings should not be called")
	}
}

func TestService_UpdateSettings_ShortPasscode(t *testing.T) {
	repo := newMemUserRepo(newTestUser())
	svc := newTestService(repo)

	_, err := svc.UpdateSettings(context.Background(), "user-1", SettingsInput{
		AgeHandlingEnabled: boolPtr(true),
		Passcode:           strPtr("123"),
	})
	apiErr := assertAPIErrorCode(t, err, model.ErrCodeValidation)
	if apiErr.Fields[0].Field != "ageHandlingPasscode" {
		t.Errorf("Fields = %+v", apiErr.Fields)
	}
	if repo.users["user-1"].HasPasscode() {
		t.Error("passcode should not be stored")
	}
}

// 初回有効化時にパスコードがハッシュ化されて保存されること
func TestService_UpdateSettings_EnableWithPasscode(t *testing.T) {
	repo := newMemUserRepo(newTestUser())
	svc := newTestService(repo)

	got, err := svc.UpdateSettings(context.Background(), "user-1", SettingsInput{
		AgeHandlingEnabled: boolPtr(true),
		Passcode:           strPtr("1234"),
	})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if !got.AgeHandlingEnabled || !got.HasPasscode() {
		t.Errorf("user = %+v", got)
	}

	stored := *repo.users["user-1"].AgeHandlingPasscodeHash
	if stored == "1234" {
		t.Fatal("passcode stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte("1234")); err != nil {
		t.Errorf("stored hash does not match passcode: %v", err)
	}
}

// パスコード未設定での有効化はPASSCODE_REQUIREDとなること
func TestService_UpdateSettings_EnableWithoutPasscode(t *testing.T) {
	repo := newMemUserRepo(newTestUser())
	svc := newTestService(repo)

	_, err := svc.UpdateSettings(context.Background(), "user-1", SettingsInput{AgeHandlingEnabled: boolPtr(true)})
	assertAPIErrorCode(t, err, model.ErrCodePasscodeRequired)
	if repo.users["user-1"].AgeHandlingEnabled {
		t.Error("age handling should remain disabled")
	}
}

// パスコード設定済みなら再度の有効化・無効化にパスコードは不要なこと
func TestService_UpdateSettings_ToggleAfterPasscodeSet(t *testing.T) {
	repo := newMemUserRepo(newTestUser())
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.UpdateSettings(ctx, "user-1", SettingsInput{AgeHandlingEnabled: boolPtr(true), Passcode: strPtr("1234")}); err != nil {
		t.Fatalf("initial enable error = %v", err)
	}
	got, err := svc.UpdateSettings(ctx, "user-1", SettingsInput{AgeHandlingEnabled: boolPtr(false)})
	if err != nil || got.AgeHandlingEnabled {
		t.Fatalf("disable = %+v, %v", got, err)
	}
	got, err = svc.UpdateSettings(ctx, "user-1", SettingsInput{AgeHandlingEnabled: boolPtr(true)})
	if err != nil || !got.AgeHandlingEnabled {
		t.Fatalf("re-enable = %+v, %v", got, err)
	}
}

// パスコードは一度しか設定できないこと
func TestService_UpdateSettings_PasscodeAlreadySet(t *testing.T) {
	repo := newMemUserRepo(newTestUser())
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.UpdateSettings(ctx, "user-1", SettingsInput{Passcode: strPtr("1234")}); err != nil {
		t.Fatalf("first set error = %v", err)
	}
	first := *repo.users["user-1"].AgeHandlingPasscodeHash

	_, err := svc.UpdateSettings(ctx, "user-1", SettingsInput{Passcode: strPtr("5678")})
	assertAPIErrorCode(t, err, model.ErrCodePasscodeAlreadySet)
	if *repo.users["user-1"].AgeHandlingPasscodeHash != first {
		t.Error("passcode hash should not change")
	}
}

// パスコードはbcryptが扱える72バイトまで受け付け、超過は項目エラーとなること
func TestService_UpdateSettings_PasscodeMaxBytes(t *testing.T) {
	tests := []struct {
		name     string
		passcode string
		wantErr  bool
	}{
		{"72バイトは許可", strings.Repeat("a", 72), false},
		{"73バイトは拒否", strings.Repeat("a", 73), true},
		// 25文字でも75バイトになるマルチバイト文字列
		{"マルチバイトはバイト数で判定", strings.Repeat("あ", 25), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemUserRepo(newTestUser())
			svc := newTestService(repo)

			_, err := svc.UpdateSettings(context.Background(), "user-1", SettingsInput{Passcode: strPtr(tt.passcode)})
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("UpdateSettings() error = %v", err)
				}
				return
			}
			apiErr := assertAPIErrorCode(t, err, model.ErrCodeValidation)
			if apiErr.Fields[0].Field != "ageHandlingPasscode" {
				t.Errorf("Fields = %+v", apiErr.Fields)
			}
			if repo.updateSettingsCalls != 0 {
				t.Error("UpdateSettings should not be called")
			}
		})
	}
}

// 同時に初回パスコードを設定した場合、一方のみが成功し保存済みのハッシュは上書きされないこと
func TestService_UpdateSettings_ConcurrentFirstPasscode(t *testing.T) {
	repo := newMemUserRepo(newTestUser())

	// 両方のリクエストが書き込み前の状態を読み取るまで待ち合わせる
	var read sync.WaitGroup
	read.Add(2)
	repo.findByIDFn = func(ctx context.Context, id string) (*model.User, error) {
		read.Done()
		read.Wait()
		return newTestUser(), nil
	}
	svc := newTestService(repo)

	passcodes := []string{"1111", "2222"}
	errs := make([]error, len(passcodes))
	var wg sync.WaitGroup
	for i, p := range passcodes {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			_, errs[i] = svc.UpdateSettings(context.Background(), "user-1", SettingsInput{Passcode: strPtr(p)})
		}(i, p)
	}
	wg.Wait()

	var succeeded []string
	for i, err := range errs {
		if err == nil {
			succeeded = append(succeeded, passcodes[i])
			continue
		}
		assertAPIErrorCode(t, err, model.ErrCodePasscodeAlreadySet)
	}
	if len(succeeded) != 1 {
		t.Fatalf("succeeded = %v, want exactly one winner (errs = %v)", succeeded, errs)
	}

	stored := *repo.users["user-1"].AgeHandlingPasscodeHash
	if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(succeeded[0])); err != nil {
		t.Errorf("stored hash does not match the accepted passcode %q", succeeded[0])
	}
}

func TestService_UpdateSettings_UserNotFound(t *testing.T) {
	svc := newTestService(newMemUserRepo())
	_, err := svc.UpdateSettings(context.Background(), "missing", SettingsInput{Theme: strPtr("dark")})
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

// --- GetUser / GetSettings / VerifyPasscode ---

func TestService_GetSettings(t *testing.T) {
	u := newTestUser()
	u.Theme = model.ThemeDark
	svc := newTestService(newMemUserRepo(u))

	got, err := svc.GetSettings(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if got.Theme != model.ThemeDark || got.AgeHandlingEnabled || got.PasscodeSet {
		t.Errorf("GetSettings() = %+v", got)
	}
}

func TestService_GetUser_RepositoryError(t *testing.T) {
	repo := newMemUserRepo()
	repo.findByIDFn = func(ctx context.Context, id string) (*model.User, error) {
		return nil, errors.New("connection refused")
	}
	svc := newTestService(repo)

	_, err := svc.GetUser(context.Background(), "user-1")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("repository error should not be an APIError: %v", apiErr)
	}
}

func TestService_VerifyPasscode(t *testing.T) {
	repo := newMemUserRepo(newTestUser())
	svc := newTestService(repo)
	ctx := context.Background()

	ok, err := svc.VerifyPasscode(ctx, "user-1", "1234")
	if err != nil || ok {
		t.Errorf("VerifyPasscode() before set = %v, %v; want false, nil", ok, err)
	}

	if _, err := svc.UpdateSettings(ctx, "user-1", SettingsInput{Passcode: strPtr("1234")}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}

	ok, err = svc.VerifyPasscode(ctx, "user-1", "1234")
	if err != nil || !ok {
		t.Errorf("VerifyPasscode(correct) = %v, %v", ok, err)
	}
	ok, err = svc.VerifyPasscode(ctx, "user-1", "0000")
	if err != nil || ok {
		t.Errorf("VerifyPasscode(wrong) = %v, %v", ok, err)
	}
}
