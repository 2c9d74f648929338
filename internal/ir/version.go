package ir

// EngineVersion is the timelock engine version.
const EngineVersion = "0.1.0"
