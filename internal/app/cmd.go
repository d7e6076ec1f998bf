package app

// Command selects the jobauthd run mode.
type Command string

const (
	// CommandServe starts the HTTP API.
	CommandServe Command = "serve"
	// CommandMigrate applies pending Postgres migrations and exits.
	CommandMigrate Command = "migrate"
	// CommandHashPassword reads a password from the terminal and prints its
	// argon2id hash, for seeding accounts by hand.
	CommandHashPassword Command = "hash-password"
	// CommandHealthcheck probes /healthz of a running instance. Used as the
	// container health check where no shell is available.
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand maps the first argument to a Command. Empty or unknown
// arguments fall back to CommandServe.
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "hash-password":
		return CommandHashPassword
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
