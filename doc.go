// Package keyvalue is a pluggable key-value storage abstraction for hosts
// that execute sandboxed guests. Guests obtain opaque integer handles to
// named stores and perform get/set/delete/list operations through those
// handles; the host enforces which store names are visible and multiplexes
// any number of backend implementations behind one interface.
//
// Components:
//   - Store / StoreManager: the backend contracts. Concrete backends live
//     under store/ (memory, redis, bolt, bigcache).
//   - DelegatingStoreManager: routes each store name to one of several
//     underlying managers.
//   - CachingStoreManager: wraps every produced Store in a bounded,
//     write-behind cache with read-your-writes consistency.
//   - Dispatch: the capability-scoped handle table plus allow-list gate,
//     the surface a protocol adapter calls into. LegacyDispatch exposes
//     the same table through the older error taxonomy.
//
// Durability caveat: through the caching layer, Set and Delete return
// before the backend write completes. Success of a write call therefore
// does not imply durability; only a later successful Get, GetKeys or
// explicit Flush implies prior writes landed. See CachingStoreManager.
package keyvalue
