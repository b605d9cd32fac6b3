package common

// AccessTokenHeaderName is the gRPC metadata key (and HTTP header, lowercased)
// used to carry the access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// ActorSystem is recorded as the actor of revisions created by background
// processes rather than by a reviewer.
const ActorSystem = "system"
