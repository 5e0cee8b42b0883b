package sequence

// Version is the release of the module and of seqctl.
const Version = "0.1.0"
