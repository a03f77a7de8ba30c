package partnerapi

// Version is the SDK release version, reported in the User-Agent header.
const Version = "1.2.0"
