package common

// ActorLocalsKey is the fiber Locals key under which the admin auth
// middleware stores the authenticated actor identity for audit logging.
const ActorLocalsKey = "actor"
