package config

// Environment describes one backend target the app can be built against.
type Environment struct {
	Protocol string `yaml:"protocol" validate:"required,oneof=http https"`
	Domain   string `yaml:"domain" validate:"required"`
	Port     int    `yaml:"port" validate:"required,gt=0,lte=65535"`
}

// Environments is the top-level structure of environments.yml.
type Environments struct {
	Environments map[string]Environment `yaml:"environments" validate:"required,dive"`
}

// PlatformManifest holds the release identity for one platform. The
// descriptor uses uppercase keys so the same file can be consumed by the
// store-upload tooling.
type PlatformManifest struct {
	Version string `yaml:"VERSION" validate:"required"`
	Build   int    `yaml:"BUILD" validate:"gte=0"`
}

// Manifest is the top-level structure of app.yml.
type Manifest struct {
	Name    string           `yaml:"NAME" validate:"required"`
	Android PlatformManifest `yaml:"ANDROID"`
	IOS     PlatformManifest `yaml:"IOS"`
}

// AndroidCredentials holds the keystore material for release signing.
type AndroidCredentials struct {
	StoreFile     string `yaml:"store_file" validate:"required"`
	KeyAlias      string `yaml:"key_alias" validate:"required"`
	StorePassword string `yaml:"store_password" validate:"required"`
	KeyPassword   string `yaml:"key_password" validate:"required"`
}

// IOSCredentials holds the signing identity for archive export.
type IOSCredentials struct {
	ProvisioningProfile string `yaml:"provisioning_profile" validate:"required"`
	CodeSignIdentity    string `yaml:"code_sign_identity" validate:"required"`
	TeamID              string `yaml:"team_id"`
}

// Credentials is the top-level structure of credentials.yml. The file lives
// outside version control; the pipeline copies values out of it and must
// never leave them behind in tracked files.
type Credentials struct {
	Android AndroidCredentials `yaml:"android"`
	IOS     IOSCredentials     `yaml:"ios"`
}

// Store bundles the three loaded descriptors and exposes read-only typed
// accessors to the orchestrator and pipelines.
type Store struct {
	ProjectDir   string
	Environments Environments
	Manifest     Manifest
	Credentials  Credentials

	hasCredentials bool
}

// Environment returns the named environment definition.
func (s *Store) Environment(name string) (Environment, bool) {
	env, ok := s.Environments.Environments[name]
	return env, ok
}

// EnvironmentNames returns the defined environment names.
func (s *Store) EnvironmentNames() []string {
	names := make([]string, 0, len(s.Environments.Environments))
	for name := range s.Environments.Environments {
		names = append(names, name)
	}
	return names
}

// HasCredentials reports whether a credentials descriptor was found. Debug
// builds do not need one; prod builds do.
func (s *Store) HasCredentials() bool {
	return s.hasCredentials
}
