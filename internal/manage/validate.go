package manage

// ValidateParams checks p against the allow-list and required-list of its subcommand.
// It has no side effects; a failure here means nothing else may run.
func ValidateParams(p Params) error {
	if _, err := ParseSubcommand(string(p.Command)); err != nil {
		return err
	}
	if p.AppPath == "" {
		return validationf("missing required arguments: %s", ParamAppPath)
	}

	for _, param := range specificParams {
		if p.Value(param) != "" && !p.Command.Allows(param) {
			return validationf("%s param is incompatible with command=%s", param, p.Command)
		}
	}

	for _, param := range p.Command.Requires() {
		if p.Value(param) == "" {
			return validationf("%s param is required for command=%s", param, p.Command)
		}
	}
	return nil
}
