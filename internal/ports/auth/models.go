package auth

// Claims representa la identidad extraída del token del host.
// Editor marca privilegio de edición de contenido; habilita el bypass
// de paywall en superficies de preview/admin (nunca en feeds).
type Claims struct {
	UserID string
	Email  string
	Editor bool
}
