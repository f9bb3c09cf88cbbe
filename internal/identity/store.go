package identity

import (
	"context"
	"errors"
	"strings"

	"socialnet/backend/internal/apperr"
	"socialnet/backend/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MaxSearchResults caps user search results.
const MaxSearchResults = 20

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Store is the user directory.
type Store struct {
	db       *gorm.DB
	hashCost int
}

// NewStore creates a Store using bcrypt's default cost.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, hashCost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *Store) WithHashCost(cost int) *Store {
	s.hashCost = cost
	return s
}

// ResolveUser returns the user with the given id or a NotFound error.
func (s *Store) ResolveUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	if err != nil {
		return nil, apperr.Internalf("Failed to load user", err)
	}
	return &user, nil
}

// ResolveUsers loads several users at once, keyed by id. Unknown ids are skipped.
func (s *Store) ResolveUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	users := make(map[uuid.UUID]models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	var found []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, apperr.Internalf("Failed to load users", err)
	}
	for _, u := range found {
		users[u.ID] = u
	}
	return users, nil
}

// Register creates an account. Duplicate email or username and policy
// violations are reported as errors the caller can show.
func (s *Store) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if input.Username == "" || input.Email == "" {
		return nil, apperr.New(apperr.InvalidArgument, "Username and email are required")
	}
	if problems := CheckPassword(input.Password); len(problems) > 0 {
		return nil, apperr.New(apperr.InvalidArgument, joinProblems(problems))
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", input.Email).Count(&count).Error; err != nil {
		return nil, apperr.Internalf("Failed to check email", err)
	}
	if count > 0 {
		return nil, apperr.New(apperr.Conflict, "Email already registered")
	}
	if err := db.Model(&models.User{}).Where("username = ?", input.Username).Count(&count).Error; err != nil {
		return nil, apperr.Internalf("Failed to check username", err)
	}
	if count > 0 {
		return nil, apperr.New(apperr.Conflict, "Username '"+input.Username+"' is already taken")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, apperr.Internalf("Failed to hash password", err)
	}

	user := &models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
	}
	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.New(apperr.Conflict, "Email or username already registered")
		}
		return nil, apperr.Internalf("Failed to create user", err)
	}
	return user, nil
}

// Authenticate checks an email/password pair.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	invalid := apperr.New(apperr.Unauthenticated, "Invalid email or password")

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, apperr.Internalf("Failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, invalid
	}
	return &user, nil
}

// Search finds users other than viewerID whose username or email contains term.
func (s *Store) Search(ctx context.Context, viewerID uuid.UUID, term string, limit int) ([]models.User, error) {
	if limit <= 0 || limit > MaxSearchResults {
		limit = MaxSearchResults
	}

	query := s.db.WithContext(ctx).Where("id <> ?", viewerID)
	if term = strings.TrimSpace(term); term != "" {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		query = query.Where("(LOWER(username) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\')", pattern, pattern)
	}

	var users []models.User
	if err := query.Order("username ASC").Limit(limit).Find(&users).Error; err != nil {
		return nil, apperr.Internalf("Failed to search users", err)
	}
	return users, nil
}

// SetProfilePicture stores the object key of the user's picture.
func (s *Store) SetProfilePicture(ctx context.Context, userID uuid.UUID, key string) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("profile_picture", key)
	if result.Error != nil {
		return apperr.Internalf("Failed to update profile picture", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "User not found")
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
