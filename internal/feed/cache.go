package feed

import "context"

// descriptorCache memoizes descriptor lookups for the lifetime of one
// request. It is created per call and never shared across requests, so
// cached answers cannot leak between users.
type descriptorCache struct {
	registry DescriptorRegistry
	user     string
	known    map[string]bool
}

func newDescriptorCache(registry DescriptorRegistry, user string) *descriptorCache {
	return &descriptorCache{
		registry: registry,
		user:     user,
		known:    map[string]bool{},
	}
}

// has reports whether the event type has a descriptor, consulting the
// registry at most once per type.
func (c *descriptorCache) has(ctx context.Context, eventType string) (bool, error) {
	if got, ok := c.known[eventType]; ok {
		return got, nil
	}
	got, err := c.registry.HasDescriptor(ctx, eventType, c.user)
	if err != nil {
		return false, err
	}
	c.known[eventType] = got
	return got, nil
}
