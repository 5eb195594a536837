package services

import (
	"github.com/rohits-web03/chatvault/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

func GoogleOAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     config.Envs.Google.ClientID,
		ClientSecret: config.Envs.Google.ClientSecret,
		RedirectURL:  config.Envs.Google.RedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}
