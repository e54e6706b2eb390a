package workflow

// Document is the declarative, YAML-decoded shape of a workflow file before
// it is built into the runtime Workflow model. Field names follow spec §6's
// document grammar.
type Document struct {
	GlobalConfig DocGlobalConfig    `yaml:"globalConfig,omitempty"`
	Permissions  []string           `yaml:"permissions,omitempty"`
	Lifecycle    []DocLifecycle     `yaml:"lifecycle,omitempty"`
	Environment  map[string]string  `yaml:"environment,omitempty"`
	Jobs         []DocJob           `yaml:"jobs"`
}

// DocGlobalConfig is the document's top-level configuration block.
type DocGlobalConfig struct {
	TemplatePath string `yaml:"templatePath,omitempty"`
}

// DocJob is one job entry in the document's jobs list.
type DocJob struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name,omitempty"`
	Needs       []string          `yaml:"needs,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Form        map[string]any    `yaml:"form,omitempty"`
	Lifecycle   []DocLifecycle    `yaml:"lifecycle,omitempty"`
	Steps       []DocStep         `yaml:"steps"`
}

// DocStep is one step entry within a job's steps list.
type DocStep struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name,omitempty"`
	Form      map[string]any `yaml:"form,omitempty"`
	If        string         `yaml:"if,omitempty"`
	Lifecycle []DocLifecycle `yaml:"lifecycle,omitempty"`
	DocScript `yaml:",inline"`
}

// DocLifecycle is one lifecycle hook declaration. It carries its phase tag
// alongside the same script fields a step carries.
type DocLifecycle struct {
	ID        string `yaml:"id,omitempty"`
	On        string `yaml:"on"` // setup|beforeJob|beforeStep|afterStep|afterJob|teardown
	DocScript `yaml:",inline"`
}

// DocScript is the tagged-union script declaration shared by DocStep and
// DocLifecycle: exactly one of Command/File/Files should be set, and Type
// names which.
type DocScript struct {
	Type    string             `yaml:"type"` // bash|template|javascript
	Command string             `yaml:"command,omitempty"`
	File    string             `yaml:"file,omitempty"`
	Files   []DocTemplateFile  `yaml:"files,omitempty"`
}

// DocTemplateFile is one (source, output) pair in a template script
// declaration.
type DocTemplateFile struct {
	File   string `yaml:"file"`
	Output string `yaml:"output"`
}
