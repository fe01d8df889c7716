// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAdminAccessDenied      = "admin.access_denied"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// Listings
	KeyListingCreated  = "listing.created"
	KeyListingUpdated  = "listing.updated"
	KeyListingDelisted = "listing.delisted"
	KeyListingNotFound = "listing.not_found"

	// Agents
	KeyAgentCreated  = "agent.created"
	KeyAgentNotFound = "agent.not_found"

	// Purchases
	KeyPurchaseCreated   = "purchase.created"
	KeyPurchaseCancelled = "purchase.cancelled"
	KeyPurchaseNotFound  = "purchase.not_found"
	KeyPurchaseVerified  = "purchase.verified"
	KeyPurchasePending   = "purchase.pending"
	KeyPurchaseRejected  = "purchase.rejected"

	// Access
	KeyAccessGranted    = "access.granted"
	KeyAccessDenied     = "access.denied"
	KeyCredentialIssued = "access.credential_issued"
)

// Built-in English messages; locale files on disk override these.
var defaults = map[string]string{
	KeySuccess: "Success",
	KeyError:   "An error occurred",

	KeyAuthRequired:           "Authentication required",
	KeyAuthInvalidToken:       "Invalid authentication token",
	KeyAuthTokenExpired:       "Authentication token has expired",
	KeyAuthInvalidCredentials: "Invalid email or password",
	KeyAuthUserExists:         "A user with this email or username already exists",
	KeyAuthLoginSuccess:       "Logged in successfully",
	KeyAuthRegisterSuccess:    "Registered successfully",
	KeyAdminAccessDenied:      "Administrator access required",

	KeyValidationInvalid: "Invalid %s",

	KeyListingCreated:  "Listing created successfully",
	KeyListingUpdated:  "Listing updated successfully",
	KeyListingDelisted: "Listing delisted successfully",
	KeyListingNotFound: "Listing not found",

	KeyAgentCreated:  "Agent registered successfully",
	KeyAgentNotFound: "Agent not found",

	KeyPurchaseCreated:   "Purchase intent created",
	KeyPurchaseCancelled: "Purchase intent cancelled",
	KeyPurchaseNotFound:  "Purchase intent not found",
	KeyPurchaseVerified:  "Payment verified and entitlement granted",
	KeyPurchasePending:   "Payment is pending verification",
	KeyPurchaseRejected:  "Payment was rejected",

	KeyAccessGranted:    "Access granted",
	KeyAccessDenied:     "No active entitlement for this subject",
	KeyCredentialIssued: "Access credential issued",
}
