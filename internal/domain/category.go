package domain

// Category is a static ticket reason loaded from configuration.
type Category struct {
	Key         string `yaml:"key"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
	Emoji       string `yaml:"emoji"`
	ParentID    string `yaml:"category_id"`
	StaffRoleID string `yaml:"team_role_id"`
}
