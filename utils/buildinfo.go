package utils

var (
	BuildVersion = "local"
	BuildRelease = "dev"
)

func GetBuildVersion() string {
	return BuildVersion + "-" + BuildRelease
}
