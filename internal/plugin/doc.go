// Package plugin provides the editor's named plugin registry.
//
// Plugins are plain Go values with a name. The registry keeps them in
// registration order, tracks a lifecycle State per plugin and reports
// changes to event handlers:
//
//	reg := plugin.NewRegistry(plugin.WithLogger(logger))
//	reg.Register(lists.New())
//	reg.Register(hub.Plugin()) // registered as "rtc"
//
//	err := reg.Init(ctx, func(ctx context.Context, p plugin.Plugin) error {
//	    if in, ok := p.(MyInitializer); ok {
//	        return in.Init(ctx, editor)
//	    }
//	    return nil
//	})
//
// The init function is supplied by the owner of the registry so that plugins
// can depend on the owner's API without this package importing it. A plugin
// whose init fails moves to StateError; the remaining plugins still
// initialize and the errors are joined.
//
// # Lookup
//
// Lookup returns the registered value as any, which is the shape the rtc
// package expects when it probes for a collaboration plugin.
//
// # Close
//
// Close calls Close on every plugin implementing Closer, in reverse
// registration order.
package plugin
