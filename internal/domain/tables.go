package domain

var Tables = []interface{}{
	&HotspotContact{},
	&PortalRegisterLog{},
}
