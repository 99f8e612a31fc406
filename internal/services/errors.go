package services

import "errors"

// Domain errors returned as values by the registrar, the authenticator and
// the verification flow. Handlers translate them into HTTP 400 with the
// user-facing message; anything else is a downstream failure and maps to 500.
var (
	ErrNoData            = errors.New("Aucune donnée à enregistrer")
	ErrMissingField      = errors.New("Tous les champs sont obligatoires")
	ErrDuplicateEmail    = errors.New("L'adresse email est déjà utilisée.")
	ErrDuplicateUsername = errors.New("Le nom d'utilisateur est déjà utilisé.")
	ErrNoSuchUser        = errors.New("Il n'y a pas d'utilisateur associé à cette adresse email.")
	ErrUnverifiedAccount = errors.New("Votre compte n'est pas encore vérifié. Veuillez vérifier votre boîte mail.")
	ErrInvalidPassword   = errors.New("Mot de passe incorrect")
	ErrInvalidToken      = errors.New("Token invalide ou expiré")
	ErrAlreadyVerified   = errors.New("Ce compte est déjà vérifié.")
)

// IsDomainError reports whether err is one of the validation errors above,
// as opposed to an infrastructure failure.
func IsDomainError(err error) bool {
	for _, domainErr := range []error{
		ErrNoData,
		ErrMissingField,
		ErrDuplicateEmail,
		ErrDuplicateUsername,
		ErrNoSuchUser,
		ErrUnverifiedAccount,
		ErrInvalidPassword,
		ErrInvalidToken,
		ErrAlreadyVerified,
	} {
		if errors.Is(err, domainErr) {
			return true
		}
	}
	return false
}
