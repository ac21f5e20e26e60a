package auth

// Claims es lo que el IAM confirma sobre el caller.
// UserID se usa como dueño de recetas, dosis y dispositivos.
type Claims struct {
	UserID   string
	Username string
	Email    string
	TenantID string
}
