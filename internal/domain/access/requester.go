package access

// Requester es la identidad del que pide contenido en este request:
// usuario autenticado (claims), invitado (email de sesión/cookie) o
// solo una sesión anónima con grants efímeros.
type Requester struct {
	UserID string
	Email  string // email verificado de los claims (para el merge en login)
	Editor bool

	SessionID  string
	GuestEmail string // email de invitado que viene de sesión o cookie
}

// Authenticated responde si hay identidad de usuario.
func (r Requester) Authenticated() bool {
	return r.UserID != ""
}

// Surface identifica la superficie de render que pide el contenido.
type Surface string

const (
	SurfacePage  Surface = "page"
	SurfaceREST  Surface = "rest"
	SurfaceFeed  Surface = "feed"
	SurfaceEmbed Surface = "embed"
	SurfaceMeta  Surface = "meta"
	SurfaceAdmin Surface = "admin"
)

// ParseSurface coerciona al set conocido; fuera de dominio cae a page.
func ParseSurface(s string) Surface {
	switch Surface(s) {
	case SurfacePage, SurfaceREST, SurfaceFeed, SurfaceEmbed, SurfaceMeta, SurfaceAdmin:
		return Surface(s)
	default:
		return SurfacePage
	}
}

// TeaserOnly responde si la superficie no tiene affordance interactiva:
// ahí el contenido bloqueado se reemplaza entero por teaser plano, nunca
// por placeholders HTML.
func (s Surface) TeaserOnly() bool {
	return s == SurfaceFeed || s == SurfaceEmbed || s == SurfaceMeta
}
