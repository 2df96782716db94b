package typeregistry

func init() {
	RegisterPrimitives(global)
}
