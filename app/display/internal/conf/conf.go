package conf

// Bootstrap 展示服务的配置根
type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
}

type Server struct {
	Http *HTTP `json:"http"`
}

type HTTP struct {
	Addr    string `json:"addr"`
	Timeout string `json:"timeout"`
}

// Data 数据来源：配置了 database 时读镜像库，否则直接读归档文件
type Data struct {
	Archive  *Archive  `json:"archive"`
	Database *Database `json:"database"`
}

type Archive struct {
	Path string `json:"path"`
}

type Database struct {
	Driver string `json:"driver"`
	Source string `json:"source"`
}
