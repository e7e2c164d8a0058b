package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"restaurantepos/internal/config"
	"restaurantepos/internal/dto"
	"restaurantepos/internal/model"
)

// ── In-memory Repository Stub ─────────────────────────────────────────────────

type stubUsuarioRepo struct {
	users map[string]*model.Usuario
}

func newStubRepo() *stubUsuarioRepo {
	return &stubUsuarioRepo{users: make(map[string]*model.Usuario)}
}

func (r *stubUsuarioRepo) Create(_ context.Context, u *model.Usuario) error {
	if _, ok := r.users[u.Username]; ok {
		return errors.New("UNIQUE constraint failed: usuarios.username")
	}
	u.ID = uuid.New()
	r.users[u.Username] = u
	return nil
}

func (r *stubUsuarioRepo) FindByUsername(_ context.Context, username string) (*model.Usuario, error) {
	u, ok := r.users[username]
	if !ok || !u.Activo {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *stubUsuarioRepo) FindAnyByUsername(_ context.Context, username string) (*model.Usuario, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *stubUsuarioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Usuario, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUsuarioRepo) Update(_ context.Context, u *model.Usuario) error {
	r.users[u.Username] = u
	return nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

const testSecret = "test_jwt_secret_32_chars_minimum!"

func newTestCfg() *config.Config {
	return &config.Config{
		JWTSecret:          testSecret,
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
	}
}

func seedUser(t *testing.T, repo *stubUsuarioRepo, username, password, rol string) *model.Usuario {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.Usuario{
		ID: uuid.New(), Username: username, Nombre: "Test User",
		PasswordHash: string(hash), Rol: rol, Activo: true,
	}
	repo.users[username] = u
	return u
}

func signToken(t *testing.T, userID string, dur time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID, "username": "testuser", "rol": model.RolCajero,
		"exp": time.Now().Add(dur).Unix(), "iat": time.Now().Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

// ── Tests: Login ──────────────────────────────────────────────────────────────

func TestLogin_Success(t *testing.T) {
	repo := newStubRepo()
	u := seedUser(t, repo, "admin", "password123", model.RolAdministrador)
	svc := NewAuthService(repo, newTestCfg())

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Username: "admin", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 8*3600, resp.ExpiresIn)
	assert.Equal(t, model.RolAdministrador, resp.User.Rol)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(resp.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), claims["user_id"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	repo := newStubRepo()
	seedUser(t, repo, "cajero1", "correctpass", model.RolCajero)
	svc := NewAuthService(repo, newTestCfg())

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "cajero1", Password: "wrongpass"})
	assert.ErrorIs(t, err, ErrCredenciales)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Username: "noexiste", Password: "anypass123"})
	assert.ErrorIs(t, err, ErrCredenciales)
}

// ── Tests: Refresh ────────────────────────────────────────────────────────────

func TestRefresh_Success(t *testing.T) {
	repo := newStubRepo()
	u := seedUser(t, repo, "mesero1", "pass1234", model.RolMesero)
	svc := NewAuthService(repo, newTestCfg())

	login, err := svc.Login(context.Background(), dto.LoginRequest{Username: "mesero1", Password: "pass1234"})
	require.NoError(t, err)

	resp, err := svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, u.Username, resp.User.Username)
}

func TestRefresh_InvalidToken(t *testing.T) {
	svc := NewAuthService(newStubRepo(), newTestCfg())
	_, err := svc.Refresh(context.Background(), "this.is.garbage")
	assert.Error(t, err)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	repo := newStubRepo()
	u := seedUser(t, repo, "cajero2", "pass12345", model.RolCajero)
	svc := NewAuthService(repo, newTestCfg())

	_, err := svc.Refresh(context.Background(), signToken(t, u.ID.String(), -time.Second))
	assert.Error(t, err)
}

func TestRefresh_InactiveUser(t *testing.T) {
	repo := newStubRepo()
	u := seedUser(t, repo, "baja", "pass12345", model.RolCocina)
	u.Activo = false
	svc := NewAuthService(repo, newTestCfg())

	_, err := svc.Refresh(context.Background(), signToken(t, u.ID.String(), time.Hour))
	assert.Error(t, err)
}

// ── Tests: Usuarios ───────────────────────────────────────────────────────────

func TestCrearUsuario(t *testing.T) {
	repo := newStubRepo()
	svc := NewAuthService(repo, newTestCfg())

	resp, err := svc.CrearUsuario(context.Background(), dto.CrearUsuarioRequest{
		Username: "nuevo", Nombre: "Nuevo User", Password: "securepass", Rol: model.RolCocina,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RolCocina, resp.Rol)
	assert.NotEmpty(t, resp.ID)
	assert.True(t, resp.Activo)

	_, err = svc.CrearUsuario(context.Background(), dto.CrearUsuarioRequest{
		Username: "nuevo", Nombre: "Otro", Password: "securepass", Rol: model.RolCajero,
	})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "username", ve.Campo)

	_, err = svc.CrearUsuario(context.Background(), dto.CrearUsuarioRequest{
		Username: "x1", Nombre: "X", Password: "securepass", Rol: "supervisor",
	})
	assert.True(t, errors.As(err, &ve))
}

func TestGuardarAdministrador(t *testing.T) {
	repo := newStubRepo()
	svc := NewAuthService(repo, newTestCfg())

	u, creado, err := svc.GuardarAdministrador(context.Background(), "admin", "Admin", "primera-clave")
	require.NoError(t, err)
	assert.True(t, creado)
	assert.Equal(t, model.RolAdministrador, u.Rol)

	// un admin dado de baja vuelve activo con la nueva contraseña
	repo.users["admin"].Activo = false
	repo.users["admin"].Rol = model.RolCajero
	_, creado, err = svc.GuardarAdministrador(context.Background(), "admin", "Admin", "segunda-clave")
	require.NoError(t, err)
	assert.False(t, creado)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Username: "admin", Password: "segunda-clave"})
	require.NoError(t, err)
	assert.Equal(t, model.RolAdministrador, repo.users["admin"].Rol)
}
