/*
Package ports defines the driven ports (interfaces) of the storyweave engine hosts.

These interfaces decouple playback from external implementations, allowing hosts to
work with various graph sources and session stores.

# Key Interfaces

  - GraphSource: loads authored graphs (files, Loam, memory, the editing project).
  - Watchable: notifies hosts that graphs changed, for hot reload.
  - StateStore: persists live session State between requests.
  - DistributedLocker: serialises access to a session across replicas.

Adapters verify themselves against RunStateStoreContract and RunGraphSourceContract.
*/
package ports
