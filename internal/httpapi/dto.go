package httpapi

type loginRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID           int64  `json:"id"`
	UserName     string `json:"userName"`
	UserID       string `json:"userId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type registerRequest struct {
	UserName string   `json:"userName"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

type registerResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"userId"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	RefreshToken string `json:"refreshToken"`
	AccessToken  string `json:"accessToken"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	UserName string `json:"userName"`
}

type errorResponse struct {
	Error string `json:"error"`
}
