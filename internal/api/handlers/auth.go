package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rohits-web03/chatvault/internal/api/services"
	"github.com/rohits-web03/chatvault/internal/config"
	"github.com/rohits-web03/chatvault/internal/models"
	"github.com/rohits-web03/chatvault/internal/repositories"
	"github.com/rohits-web03/chatvault/internal/utils"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const sessionTTL = 24 * time.Hour

// JWT Claims struct
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// issueSession signs a JWT for profile and sets it as the token cookie.
// The token doubles as the session access token seen by the encryption layer.
func issueSession(w http.ResponseWriter, profile *models.Profile) error {
	secret := config.Envs.JWTSecret
	if secret == "" {
		return errors.New("no config found for JWT")
	}

	now := time.Now()
	expiration := now.Add(sessionTTL)
	claims := &Claims{
		UserID:   profile.ID.String(),
		Username: profile.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	isProd := config.Envs.Environment == "production"
	sameSite := http.SameSiteLaxMode
	if isProd {
		sameSite = http.SameSiteNoneMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    tokenString,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		Secure:   isProd,
		HttpOnly: true,
		SameSite: sameSite,
	})
	return nil
}

// POST /auth/sign-up
func RegisterUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil || input.Email == "" || input.Username == "" || input.Password == "" {
		utils.Error(w, http.StatusBadRequest, "Invalid input")
		return
	}

	db := repositories.DB.WithContext(r.Context())

	var existing models.Profile
	err := db.Where("username = ? OR email = ?", input.Username, input.Email).First(&existing).Error
	switch {
	case err == nil:
		utils.Error(w, http.StatusBadRequest, "Username or email is already taken")
		return
	case !errors.Is(err, gorm.ErrRecordNotFound):
		log.Error().Err(err).Msg("Failed to query profiles")
		utils.Error(w, http.StatusInternalServerError, "Database query failed")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	profile := models.Profile{
		Username: input.Username,
		Email:    input.Email,
		Password: string(hashed),
	}
	if err := db.Create(&profile).Error; err != nil {
		log.Error().Err(err).Msg("Failed to insert profile")
		utils.Error(w, http.StatusInternalServerError, "Database insert failed")
		return
	}

	log.Info().Str("user_id", profile.ID.String()).Msg("Profile registered")
	utils.JSONResponse(w, http.StatusCreated, utils.Payload{Success: true, Message: "User registered successfully"})
}

// POST /auth/login
func LoginUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil || input.Username == "" || input.Password == "" {
		utils.Error(w, http.StatusBadRequest, "Invalid input")
		return
	}

	var profile models.Profile
	err := repositories.DB.WithContext(r.Context()).Where("username = ?", input.Username).First(&profile).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to query profile")
		utils.Error(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Google accounts have no password
	if profile.Password == "" || bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(input.Password)) != nil {
		utils.Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := issueSession(w, &profile); err != nil {
		log.Error().Err(err).Msg("Failed to issue session")
		utils.Error(w, http.StatusInternalServerError, "Failed to create token")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Login successful"})
}

// POST /api/auth/logout
func Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // maxAge < 0 deletes the cookie
		Secure:   config.Envs.Environment == "production",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Logged out successfully"})
}

func HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	flow := r.URL.Query().Get("redirect") // "login" or "register"
	if flow != "register" {
		flow = "login"
	}

	state, err := GenerateState(map[string]string{"flow": flow}, []byte(config.Envs.JWTSecret))
	if err != nil {
		http.Error(w, "Failed to generate OAuth state", http.StatusInternalServerError)
		return
	}

	url := services.GoogleOAuthConfig().AuthCodeURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateData, err := DecodeState(r.FormValue("state"), []byte(config.Envs.JWTSecret))
	if err != nil {
		http.Error(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}
	flow := stateData["flow"]
	frontend := config.Envs.FrontendURL

	oauthCfg := services.GoogleOAuthConfig()
	token, err := oauthCfg.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		log.Warn().Err(err).Msg("OAuth code exchange failed")
		http.Error(w, "Code exchange failed", http.StatusInternalServerError)
		return
	}

	resp, err := oauthCfg.Client(r.Context(), token).Get(services.GoogleUserInfoURL)
	if err != nil {
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		http.Error(w, "Failed to read user info", http.StatusInternalServerError)
		return
	}
	var googleUser struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(data, &googleUser); err != nil || googleUser.Email == "" {
		http.Error(w, "Failed to parse user info", http.StatusInternalServerError)
		return
	}

	db := repositories.DB.WithContext(r.Context())
	var profile models.Profile
	err = db.Where("email = ?", googleUser.Email).First(&profile).Error

	switch flow {
	case "register":
		if err == nil {
			http.Redirect(w, r, frontend+"/login?error=user_already_exists", http.StatusTemporaryRedirect)
			return
		}
		profile = models.Profile{
			Username: googleUser.Name,
			Email:    googleUser.Email,
			Password: "", // Google-authenticated
		}
		if err := db.Create(&profile).Error; err != nil {
			log.Error().Err(err).Msg("Failed to create profile from Google account")
			http.Error(w, "Failed to create user", http.StatusInternalServerError)
			return
		}
	default:
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Redirect(w, r, frontend+"/register?error=user_not_found", http.StatusTemporaryRedirect)
			return
		} else if err != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
	}

	if err := issueSession(w, &profile); err != nil {
		log.Error().Err(err).Msg("Failed to issue session")
		http.Error(w, "Failed to create JWT", http.StatusInternalServerError)
		return
	}

	status := "success_login"
	if flow == "register" {
		status = "success_register"
	}
	http.Redirect(w, r, frontend+"/chat?status="+status, http.StatusTemporaryRedirect)
}
